package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/pvpauth/logger"
)

// ListUsers returns every user's public profile ordered by user_name.
func (l *Linker) ListUsers(ctx context.Context) ([]PublicUser, error) {
	users := make([]PublicUser, 0)
	err := l.db.WithContext(ctx).
		Model(&User{}).
		Select("id", "user_name", "created_at").
		Order("user_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns the user with id, or ErrUserNotFound.
func (l *Linker) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := l.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// DeleteUser removes the user's identity links and then the user, in one
// transaction. Friendships and friend requests go with the user row.
func (l *Linker) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := l.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&GoogleUser{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&LichessUser{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	l.log.Info("User deleted", map[string]interface{}{logger.FieldUserID: id.String()})
	return nil
}
