package redisstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Repo = (*Store)(nil)

// Keys:
//   session:{id}      hash with the session fields
//   session:rt:{tok}  refresh-token index -> session id
//   session:user:{id} set of the user's session ids
const (
	sessionKeyPrefix = "session:"
	tokenKeyPrefix   = "session:rt:"
	userKeyPrefix    = "session:user:"

	// Deactivated rows are retained for the admin audit view; keys expire
	// this long after the session's own hard expiry.
	auditRetention = 30 * 24 * time.Hour
)

// rotateScript performs the single-use compare-and-update server-side:
// the refresh value is swapped only if the row is still active, unexpired,
// and holds exactly the old value. Racing rotations see 0. Key TTLs are
// re-based on the extended expiry so a continuously rotated session never
// falls out of the keyspace before its own expires_at.
//
// KEYS: 1 session hash, 2 old token index, 3 new token index
// ARGV: 1 old token, 2 new token, 3 new expiry (unix), 4 now (unix),
//       5 last activity (unix), 6 session id, 7 audit retention (seconds)
var rotateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local active = redis.call("HGET", KEYS[1], "active")
local exp = tonumber(redis.call("HGET", KEYS[1], "expires_at"))
if active ~= "1" or not exp or exp <= tonumber(ARGV[4]) then
  return 0
end
if redis.call("HGET", KEYS[1], "refresh_token") ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1],
  "refresh_token", ARGV[2],
  "expires_at", ARGV[3],
  "last_activity_at", ARGV[5],
  "updated_at", ARGV[4])
local ttl = tonumber(ARGV[3]) + tonumber(ARGV[7]) - tonumber(ARGV[4])
redis.call("EXPIRE", KEYS[1], ttl)
redis.call("DEL", KEYS[2])
redis.call("SET", KEYS[3], ARGV[6], "EX", ttl)
return 1
`)

// deactivateScript resolves the token index and clears the active flag.
// KEYS: 1 token index; ARGV: 1 now (unix)
var deactivateScript = redis.NewScript(`
local id = redis.call("GET", KEYS[1])
if not id then
  return 0
end
local key = "session:" .. id
if redis.call("EXISTS", key) == 1 then
  redis.call("HSET", key, "active", "0", "updated_at", ARGV[1])
end
redis.call("DEL", KEYS[1])
return 1
`)

// Store implements sessions.Repo on Redis.
type Store struct {
	client  *redis.Client
	nowFunc func() time.Time
}

type StoreOption func(*Store)

// WithNowFunc overrides the clock used for expiry checks (testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func New(client *redis.Client, options ...StoreOption) *Store {
	s := &Store{client: client, nowFunc: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, session *sessions.Session) error {
	key := sessionKeyPrefix + session.ID
	ttl := session.ExpiresAt.Sub(s.nowFunc()) + auditRetention

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, hashFields(session))
	pipe.Expire(ctx, key, ttl)
	pipe.Set(ctx, tokenKeyPrefix+session.RefreshToken, session.ID, ttl)
	pipe.SAdd(ctx, userKeyPrefix+session.UserID, session.ID)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "[redisstore.Create] pipeline")
}

func (s *Store) FindActive(ctx context.Context, sessionID, userID string) (*sessions.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID || !session.Active || session.Expired(s.nowFunc()) {
		return nil, sessions.ErrNotFound
	}
	return session, nil
}

func (s *Store) FindActiveByRefreshToken(ctx context.Context, token, userID string) (*sessions.Session, error) {
	sessionID, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.FindActiveByRefreshToken] Get")
	}

	session, err := s.FindActive(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	// The index can lag one rotation behind; the row is authoritative.
	if session.RefreshToken != token {
		return nil, sessions.ErrNotFound
	}
	return session, nil
}

func (s *Store) Update(ctx context.Context, sessionID string, patch sessions.Patch) error {
	key := sessionKeyPrefix + sessionID
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "[redisstore.Update] Exists")
	}
	if exists == 0 {
		return sessions.ErrNotFound
	}

	fields := map[string]interface{}{"updated_at": s.nowFunc().Unix()}
	if patch.Active != nil && !*patch.Active {
		fields["active"] = "0"
	}
	if patch.ExpiresAt != nil {
		fields["expires_at"] = patch.ExpiresAt.Unix()
	}
	if patch.LastActivityAt != nil {
		fields["last_activity_at"] = patch.LastActivityAt.Unix()
	}

	return errors.Wrap(s.client.HSet(ctx, key, fields).Err(), "[redisstore.Update] HSet")
}

func (s *Store) Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt, lastActivityAt time.Time) (bool, error) {
	keys := []string{
		sessionKeyPrefix + sessionID,
		tokenKeyPrefix + oldToken,
		tokenKeyPrefix + newToken,
	}
	res, err := rotateScript.Run(ctx, s.client, keys,
		oldToken, newToken, expiresAt.Unix(), s.nowFunc().Unix(), lastActivityAt.Unix(), sessionID,
		int64(auditRetention.Seconds()),
	).Int64()
	if err != nil {
		return false, errors.Wrap(err, "[redisstore.Rotate] script")
	}
	return res == 1, nil
}

func (s *Store) DeactivateByRefreshToken(ctx context.Context, token string) error {
	err := deactivateScript.Run(ctx, s.client, []string{tokenKeyPrefix + token}, s.nowFunc().Unix()).Err()
	return errors.Wrap(err, "[redisstore.DeactivateByRefreshToken] script")
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	ids, err := s.client.SMembers(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.ListByUser] SMembers")
	}

	var out []*sessions.Session
	for _, id := range ids {
		session, err := s.load(ctx, id)
		if errors.Is(err, sessions.ErrNotFound) {
			continue // expired out of the keyspace
		}
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	session, err := s.load(ctx, sessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	pipe.Del(ctx, tokenKeyPrefix+session.RefreshToken)
	pipe.SRem(ctx, userKeyPrefix+session.UserID, sessionID)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "[redisstore.Delete] pipeline")
}

func (s *Store) load(ctx context.Context, sessionID string) (*sessions.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[redisstore.load] HGetAll")
	}
	if len(fields) == 0 {
		return nil, sessions.ErrNotFound
	}

	session := &sessions.Session{
		ID:           sessionID,
		UserID:       fields["user_id"],
		RefreshToken: fields["refresh_token"],
		DeviceInfo:   fields["device_info"],
		IPAddress:    fields["ip_address"],
		UserAgent:    fields["user_agent"],
		LoginType:    fields["login_type"],
		Active:       fields["active"] == "1",
	}
	session.ExpiresAt = unixField(fields, "expires_at")
	session.CreatedAt = unixField(fields, "created_at")
	session.LastActivityAt = unixField(fields, "last_activity_at")
	session.UpdatedAt = unixField(fields, "updated_at")
	return session, nil
}

func hashFields(s *sessions.Session) map[string]interface{} {
	active := "0"
	if s.Active {
		active = "1"
	}
	return map[string]interface{}{
		"user_id":          s.UserID,
		"refresh_token":    s.RefreshToken,
		"device_info":      s.DeviceInfo,
		"ip_address":       s.IPAddress,
		"user_agent":       s.UserAgent,
		"login_type":       s.LoginType,
		"active":           active,
		"expires_at":       s.ExpiresAt.Unix(),
		"created_at":       s.CreatedAt.Unix(),
		"last_activity_at": s.LastActivityAt.Unix(),
		"updated_at":       s.UpdatedAt.Unix(),
	}
}

func unixField(fields map[string]string, name string) time.Time {
	sec, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
