package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/logger"
)

const (
	googleTable  = "google_users"
	lichessTable = "lichess_users"

	usernameConstraint = "users_user_name_key"
)

// Linker maps verified provider identities to local users.
type Linker struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// Option configures a Linker.
type Option func(*Linker)

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(l *Linker) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Linker) { l.log = log.WithComponent("identity") }
}

// NewLinker creates a Linker over db.
func NewLinker(db *database.DB, opts ...Option) *Linker {
	l := &Linker{
		db:  db,
		log: logger.WithComponent("identity"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func identityTable(p provider.Provider) (string, error) {
	switch p {
	case provider.Google:
		return googleTable, nil
	case provider.Lichess:
		return lichessTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
}

// FindLinkedUser returns the user linked to the external identity, or
// (nil, nil) when there is none.
func (l *Linker) FindLinkedUser(ctx context.Context, p provider.Provider, externalID string) (*User, error) {
	table, err := identityTable(p)
	if err != nil {
		return nil, err
	}

	var u User
	err = l.db.WithContext(ctx).
		Select("users.*").
		Joins(fmt.Sprintf("JOIN %s ON %s.user_id = users.id", table, table)).
		Where(table+".id = ?", externalID).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s user: %w", p, err)
	}
	return &u, nil
}

// LinkNewUser creates a user named userName and links the claimed identity
// to it in one transaction. A taken name yields ErrUsernameConflict and an
// already linked identity ErrIdentityLinked; both leave no rows behind.
func (l *Linker) LinkNewUser(ctx context.Context, claims *provider.VerifiedClaims, userName string) (*User, error) {
	if _, err := identityTable(claims.Provider); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	user := &User{
		ID:            uuid.New(),
		UserName:      userName,
		DisplayName:   claims.DisplayName,
		Email:         claims.Email,
		Locale:        claims.Locale,
		VerifiedEmail: claims.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := l.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		switch claims.Provider {
		case provider.Google:
			return tx.Create(&GoogleUser{ID: claims.ExternalID, UserID: user.ID, CreatedAt: now}).Error
		default:
			return tx.Create(&LichessUser{
				ID:        claims.ExternalID,
				UserID:    user.ID,
				Username:  claims.ProviderUsername,
				CreatedAt: now,
				UpdatedAt: now,
			}).Error
		}
	})
	if err != nil {
		return nil, classifyLinkError(err)
	}

	l.log.Info("User linked", map[string]interface{}{
		logger.FieldUserID:     user.ID.String(),
		logger.FieldProvider:   string(claims.Provider),
		logger.FieldExternalID: claims.ExternalID,
	})
	return user, nil
}

func classifyLinkError(err error) error {
	v, ok := database.AsUniqueViolation(err)
	if !ok {
		return fmt.Errorf("link user: %w", err)
	}
	switch {
	case v.On("users", "user_name") || v.Constraint == usernameConstraint:
		return fmt.Errorf("%w: %w", ErrUsernameConflict, err)
	case v.Table == googleTable || v.Table == lichessTable:
		return fmt.Errorf("%w: %w", ErrIdentityLinked, err)
	default:
		return fmt.Errorf("link user: %w", err)
	}
}

// RefreshLinkedUser copies the provider-owned fields of claims onto the
// user. The user's chosen user_name is never touched. Empty email and
// locale claims keep the stored values.
func (l *Linker) RefreshLinkedUser(ctx context.Context, userID uuid.UUID, claims *provider.VerifiedClaims) (*User, error) {
	now := l.now().UTC()
	updates := map[string]interface{}{
		"verified_email": claims.EmailVerified,
		"updated_at":     now,
	}
	if claims.Email != "" {
		updates["email"] = claims.Email
	}
	if claims.Locale != "" {
		updates["locale"] = claims.Locale
	}

	var user User
	err := l.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if claims.Provider == provider.Lichess && claims.ProviderUsername != "" {
			err := tx.Model(&LichessUser{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{"username": claims.ProviderUsername, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("id = ?", userID).Take(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("refresh user: %w", err)
	}
	return &user, nil
}
