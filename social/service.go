package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/logger"
)

// Service reads and changes the social graph.
type Service struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewService creates a Service over db.
func NewService(db *database.DB, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: db, log: log.WithComponent("social"), now: time.Now}
}

type requestRow struct {
	Message       *string
	CreatedAt     time.Time
	UserID        uuid.UUID
	UserName      string
	UserCreatedAt time.Time
}

func (r requestRow) user() identity.PublicUser {
	return identity.PublicUser{ID: r.UserID, UserName: r.UserName, CreatedAt: r.UserCreatedAt}
}

const listRequestsSQL = `
SELECT fr.message, fr.created_at, u.id AS user_id, u.user_name, u.created_at AS user_created_at
FROM friend_requests fr
JOIN users u ON u.id = fr.%s
WHERE fr.%s = ?
ORDER BY fr.created_at, fr.id`

func (s *Service) listRequests(ctx context.Context, joinOn, filterOn string, userID uuid.UUID) ([]requestRow, error) {
	var rows []requestRow
	err := s.db.WithContext(ctx).Raw(fmt.Sprintf(listRequestsSQL, joinOn, filterOn), userID).Scan(&rows).Error
	return rows, err
}

// ListIncoming returns the requests userID has received, oldest first.
func (s *Service) ListIncoming(ctx context.Context, userID uuid.UUID) ([]IncomingRequest, error) {
	rows, err := s.listRequests(ctx, "sender_id", "receiver_id", userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming friend requests: %w", err)
	}
	out := make([]IncomingRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, IncomingRequest{Message: r.Message, CreatedAt: r.CreatedAt, Sender: r.user()})
	}
	return out, nil
}

// ListOutgoing returns the requests userID has sent, oldest first.
func (s *Service) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]OutgoingRequest, error) {
	rows, err := s.listRequests(ctx, "receiver_id", "sender_id", userID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing friend requests: %w", err)
	}
	out := make([]OutgoingRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, OutgoingRequest{Message: r.Message, CreatedAt: r.CreatedAt, Receiver: r.user()})
	}
	return out, nil
}

// SendRequest records a friend request from senderID to receiverID.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID, message *string) error {
	if senderID == receiverID {
		return ErrSelfRequest
	}

	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		friends, err := areFriends(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		var reverse int64
		err = tx.Model(&FriendRequest{}).
			Where("sender_id = ? AND receiver_id = ?", receiverID, senderID).
			Count(&reverse).Error
		if err != nil {
			return err
		}
		if reverse > 0 {
			return ErrRequestExistsInOtherDirection
		}

		var receivers int64
		if err := tx.Model(&identity.User{}).Where("id = ?", receiverID).Count(&receivers).Error; err != nil {
			return err
		}
		if receivers == 0 {
			return identity.ErrUserNotFound
		}

		return tx.Create(&FriendRequest{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Message:    message,
			CreatedAt:  s.now().UTC(),
		}).Error
	})
	switch {
	case err == nil:
		s.log.Info("Friend request sent", map[string]interface{}{
			logger.FieldUserID: senderID.String(),
			"receiver_id":      receiverID.String(),
		})
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrRequestExists, err)
	case isDomainError(err):
		return err
	default:
		return fmt.Errorf("send friend request: %w", err)
	}
}

// AcceptRequest turns the request from senderID to receiverID into a
// friendship.
func (s *Service) AcceptRequest(ctx context.Context, receiverID, senderID uuid.UUID) error {
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).Delete(&FriendRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequestNotFound
		}
		u1, u2 := orderedPair(senderID, receiverID)
		return tx.Create(&Friendship{User1ID: u1, User2ID: u2, CreatedAt: s.now().UTC()}).Error
	})
	switch {
	case err == nil:
		s.log.Info("Friend request accepted", map[string]interface{}{
			logger.FieldUserID: receiverID.String(),
			"sender_id":        senderID.String(),
		})
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrAlreadyFriends, err)
	case isDomainError(err):
		return err
	default:
		return fmt.Errorf("accept friend request: %w", err)
	}
}

// ListFriends returns userID's friends ordered by user_name.
func (s *Service) ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendEntry, error) {
	var rows []struct {
		ID               uuid.UUID
		UserName         string
		CreatedAt        time.Time
		FriendsCreatedAt time.Time
	}
	err := s.db.WithContext(ctx).Raw(`
SELECT u.id, u.user_name, u.created_at, f.created_at AS friends_created_at
FROM friends f
JOIN users u ON u.id = CASE WHEN f.user1_id = ? THEN f.user2_id ELSE f.user1_id END
WHERE f.user1_id = ? OR f.user2_id = ?
ORDER BY u.user_name`, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}

	out := make([]FriendEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FriendEntry{
			CreatedAt: r.FriendsCreatedAt,
			Friend:    identity.PublicUser{ID: r.ID, UserName: r.UserName, CreatedAt: r.CreatedAt},
		})
	}
	return out, nil
}

// DeleteFriend removes the friendship between userID and friendID. Removing
// a friendship that does not exist is not an error.
func (s *Service) DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	u1, u2 := orderedPair(userID, friendID)
	err := s.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Delete(&Friendship{}).Error
	if err != nil {
		return fmt.Errorf("delete friend: %w", err)
	}
	return nil
}

// AreFriends reports whether a and b are friends.
func (s *Service) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ok, err := areFriends(s.db.WithContext(ctx), a, b)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return ok, nil
}

func areFriends(db *gorm.DB, a, b uuid.UUID) (bool, error) {
	u1, u2 := orderedPair(a, b)
	var n int64
	err := db.Model(&Friendship{}).Where("user1_id = ? AND user2_id = ?", u1, u2).Count(&n).Error
	return n > 0, err
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrSelfRequest, ErrAlreadyFriends, ErrRequestExists,
		ErrRequestExistsInOtherDirection, ErrRequestNotFound, identity.ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
