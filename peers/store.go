package peers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/redis"
)

// DefaultWindow is how long a heartbeat keeps a peer connection listed.
const DefaultWindow = 90 * time.Second

// Store keeps peer-connection heartbeats in Redis.
type Store struct {
	rdb    *goredis.Client
	window time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithWindow overrides the liveness window.
func WithWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store on top of an open Redis client.
func NewStore(client *redis.Client, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		rdb:    client.Unwrap(),
		window: DefaultWindow,
		now:    time.Now,
		log:    log.WithComponent("peers"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the liveness window.
func (s *Store) Window() time.Duration { return s.window }

func ownerKey(peerID uuid.UUID) string   { return "peer:" + peerID.String() + ":user_id" }
func updatedKey(peerID uuid.UUID) string { return "peer:" + peerID.String() + ":updated_at" }
func userSetKey(userID string) string    { return "user:" + userID + ":peers" }

// Upsert records a heartbeat for peerID on behalf of userID. A peer id that
// previously belonged to another user moves to userID.
func (s *Store) Upsert(ctx context.Context, peerID, userID uuid.UUID) error {
	ttl := 2 * s.window

	prev, err := s.rdb.Get(ctx, ownerKey(peerID)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("peer owner lookup: %w", err)
	}

	owner := userID.String()
	set := userSetKey(owner)
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if prev != "" && prev != owner {
			p.SRem(ctx, userSetKey(prev), peerID.String())
		}
		p.Set(ctx, ownerKey(peerID), owner, ttl)
		p.Set(ctx, updatedKey(peerID), s.now().UnixMilli(), ttl)
		p.SAdd(ctx, set, peerID.String())
		p.Expire(ctx, set, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("peer upsert: %w", err)
	}
	return nil
}

type livePeer struct {
	id      uuid.UUID
	updated int64
}

// ListForUser returns the user's peer ids with a heartbeat inside the
// window, most recent first. The result is never nil.
func (s *Store) ListForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	owner := userID.String()
	set := userSetKey(owner)

	members, err := s.rdb.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("peer list: %w", err)
	}
	if len(members) == 0 {
		return []uuid.UUID{}, nil
	}

	ids := make([]uuid.UUID, len(members))
	cmds := make([]*goredis.SliceCmd, len(members))
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, m := range members {
			id, perr := uuid.Parse(m)
			if perr != nil {
				continue
			}
			ids[i] = id
			cmds[i] = p.MGet(ctx, ownerKey(id), updatedKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("peer list: %w", err)
	}

	cutoff := s.now().Add(-s.window).UnixMilli()
	live := make([]livePeer, 0, len(members))
	var stale []interface{}
	for i, m := range members {
		if cmds[i] == nil {
			stale = append(stale, m)
			continue
		}
		vals := cmds[i].Val()
		peerOwner, _ := vals[0].(string)
		updatedRaw, _ := vals[1].(string)
		updated, perr := strconv.ParseInt(updatedRaw, 10, 64)
		if peerOwner != owner || perr != nil || updated < cutoff {
			stale = append(stale, m)
			continue
		}
		live = append(live, livePeer{id: ids[i], updated: updated})
	}

	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, set, stale...).Err(); err != nil {
			s.log.WithContext(ctx).Warn("Failed to prune stale peers", logger.ErrorFields("peer_prune", err))
		}
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].updated != live[j].updated {
			return live[i].updated > live[j].updated
		}
		return live[i].id.String() < live[j].id.String()
	})
	out := make([]uuid.UUID, len(live))
	for i, p := range live {
		out[i] = p.id
	}
	return out, nil
}
