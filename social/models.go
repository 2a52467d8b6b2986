package social

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/identity"
)

// FriendRequest is a pending request from SenderID to ReceiverID.
type FriendRequest struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	SenderID   uuid.UUID `gorm:"column:sender_id"`
	ReceiverID uuid.UUID `gorm:"column:receiver_id"`
	Message    *string   `gorm:"column:message"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (FriendRequest) TableName() string { return "friend_requests" }

// Friendship is stored once per pair with User1ID < User2ID.
type Friendship struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	User1ID   uuid.UUID `gorm:"column:user1_id"`
	User2ID   uuid.UUID `gorm:"column:user2_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (Friendship) TableName() string { return "friends" }

// IncomingRequest is a request received by the listing user.
type IncomingRequest struct {
	Message   *string             `json:"message,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	Sender    identity.PublicUser `json:"sender"`
}

// OutgoingRequest is a request sent by the listing user.
type OutgoingRequest struct {
	Message   *string             `json:"message,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	Receiver  identity.PublicUser `json:"receiver"`
}

// FriendEntry is one friend of the listing user and when they became friends.
type FriendEntry struct {
	CreatedAt time.Time           `json:"createdAt"`
	Friend    identity.PublicUser `json:"friend"`
}

// orderedPair returns a and b with the smaller id first, the order the
// friends table stores them in.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}
