package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/encryption"
	"github.com/kbukum/pvpauth/logger"
)

// TokenStore keeps Lichess access tokens in lichess_access_tokens, keyed by
// the PKCE verifier that obtained them. With an Encryptor the token column
// holds ciphertext.
type TokenStore struct {
	db  *database.DB
	enc encryption.Encryptor
	log *logger.Logger
}

var _ lichess.TokenStore = (*TokenStore)(nil)

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithEncryptor seals tokens before they are written.
func WithEncryptor(enc encryption.Encryptor) TokenStoreOption {
	return func(s *TokenStore) { s.enc = enc }
}

// NewTokenStore creates a TokenStore over db.
func NewTokenStore(db *database.DB, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{db: db, log: logger.WithComponent("tokenstore")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements lichess.TokenStore. A row that cannot be decrypted, for
// example one written before encryption was enabled, reads as a miss.
func (s *TokenStore) Get(ctx context.Context, verifier string) (*lichess.AccessToken, error) {
	var row accessTokenRow
	err := s.db.WithContext(ctx).Where("id = ?", verifier).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lichess token: %w", err)
	}

	token := row.AccessToken
	if s.enc != nil {
		if token, err = s.enc.Decrypt(row.AccessToken); err != nil {
			s.log.WithContext(ctx).Warn("Ignoring undecryptable lichess token", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			return nil, nil
		}
	}
	return &lichess.AccessToken{
		Verifier:    row.ID,
		AccessToken: token,
		Expires:     time.Unix(row.Expires, 0),
	}, nil
}

// Put implements lichess.TokenStore.
func (s *TokenStore) Put(ctx context.Context, t *lichess.AccessToken) error {
	token := t.AccessToken
	if s.enc != nil {
		sealed, err := s.enc.Encrypt(token)
		if err != nil {
			return fmt.Errorf("seal lichess token: %w", err)
		}
		token = sealed
	}

	row := accessTokenRow{
		ID:          t.Verifier,
		AccessToken: token,
		Expires:     t.Expires.Unix(),
		CreatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "expires"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("put lichess token: %w", err)
	}
	return nil
}
