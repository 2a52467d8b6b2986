package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is the local, provider-independent account.
type User struct {
	ID            uuid.UUID `gorm:"column:id;primaryKey" json:"id"`
	UserName      string    `gorm:"column:user_name" json:"userName"`
	DisplayName   string    `gorm:"column:display_name" json:"displayName"`
	Email         string    `gorm:"column:email" json:"email"`
	Locale        string    `gorm:"column:locale" json:"locale"`
	VerifiedEmail bool      `gorm:"column:verified_email" json:"verifiedEmail"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName implements gorm's tabler.
func (User) TableName() string { return "users" }

// PublicUser is the subset of User visible to other players.
type PublicUser struct {
	ID        uuid.UUID `gorm:"column:id" json:"id"`
	UserName  string    `gorm:"column:user_name" json:"userName"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

// Public returns the public view of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, UserName: u.UserName, CreatedAt: u.CreatedAt}
}

// GoogleUser links a Google subject to a user.
type GoogleUser struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (GoogleUser) TableName() string { return googleTable }

// LichessUser links a Lichess account to a user and mirrors its username.
type LichessUser struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	Username  string    `gorm:"column:username"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName implements gorm's tabler.
func (LichessUser) TableName() string { return lichessTable }

// accessTokenRow stores Lichess access tokens; Expires is unix seconds.
type accessTokenRow struct {
	ID          string    `gorm:"column:id;primaryKey"`
	AccessToken string    `gorm:"column:access_token"`
	Expires     int64     `gorm:"column:expires"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (accessTokenRow) TableName() string { return "lichess_access_tokens" }
