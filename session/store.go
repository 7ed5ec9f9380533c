package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis command fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no record exists for the session ID.
var ErrNotFound = errors.New("session record not found")

// ErrCorrupt is returned when a stored blob cannot be opened or decoded.
var ErrCorrupt = errors.New("session record corrupt")

const minRecordTTL = time.Second

const deleteRecordScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// Store is a Redis-backed session record store. Each record lives under its
// own key and is written with a single SET, so concurrent writers replace the
// whole record (last write wins). A per-user set indexes session IDs for
// logout-all.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	sealer *Sealer
}

// NewStore creates a [Store]. prefix namespaces keys; sealer, when non-nil,
// encrypts blobs at rest.
func NewStore(client redis.UniversalClient, prefix string, sealer *Sealer) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		sealer: sealer,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save writes rec under rec.SessionID with the given TTL and indexes it
// under its user. It creates the key unconditionally; use it for new
// sessions only.
//
//	Performance: 1 MULTI/EXEC round trip (SET + SADD).
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.SessionID == "" {
		return errors.New("session record requires a session ID")
	}
	if ttl < minRecordTTL {
		ttl = minRecordTTL
	}

	data, err := s.marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.SessionID), data, ttl)
		if rec.User.ID != "" {
			pipe.SAdd(ctx, s.userKey(rec.User.ID), rec.SessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Update replaces an existing record with SET XX. It returns [ErrNotFound]
// when the key is gone, so a read racing a logout cannot recreate the
// session. The user index is left untouched.
//
//	Performance: 1 Redis SET.
func (s *Store) Update(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.SessionID == "" {
		return errors.New("session record requires a session ID")
	}
	if ttl < minRecordTTL {
		ttl = minRecordTTL
	}

	data, err := s.marshal(rec)
	if err != nil {
		return err
	}

	err = s.redis.SetArgs(ctx, s.key(rec.SessionID), data, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the record for sessionID. It returns [ErrNotFound] when the key is
// absent and [ErrCorrupt] when the blob cannot be opened or decoded.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := s.unmarshal(sessionID, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.SessionID != sessionID {
		return nil, fmt.Errorf("%w: session ID mismatch", ErrCorrupt)
	}
	return rec, nil
}

// Delete removes the record and its index entry. Deleting a missing record is
// not an error. With an empty userID only the record key is removed.
func (s *Store) Delete(ctx context.Context, sessionID, userID string) error {
	var err error
	if userID == "" {
		err = s.redis.Del(ctx, s.key(sessionID)).Err()
	} else {
		err = deleteRecordLua.Run(ctx, s.redis, []string{s.key(sessionID), s.userKey(userID)}, sessionID).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteUser removes every record indexed under userID together with the
// index and returns how many records still existed. Index entries whose
// record already expired or was dropped are cleared but not counted.
//
// The member read and the deletion are two round trips; a session saved in
// between survives until its own TTL or the next DeleteUser.
func (s *Store) DeleteUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)
	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, s.key(id))
	}

	var removed *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

// SessionIDs lists the session IDs indexed under userID.
func (s *Store) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) marshal(rec *Record) ([]byte, error) {
	data, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	if s.sealer == nil {
		return data, nil
	}
	return s.sealer.Seal(rec.SessionID, data)
}

func (s *Store) unmarshal(sessionID string, data []byte) (*Record, error) {
	if s.sealer != nil {
		plain, err := s.sealer.Open(sessionID, data)
		if err != nil {
			return nil, err
		}
		data = plain
	}
	return Decode(data)
}
