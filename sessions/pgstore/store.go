package pgstore

import (
	"context"
	_ "embed"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-cms/auth-service/sessions"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

var _ sessions.Repo = (*Store)(nil)

// Store implements sessions.Repo on PostgreSQL. Rotation is a single
// conditioned UPDATE: the WHERE clause pins the old refresh value, so of
// two racing rotations only one can report a row affected.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed session store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the sessions table and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "[pgstore.EnsureSchema] Exec")
}

const sessionColumns = `id, user_id, refresh_token, device_info, ip_address, user_agent,
	login_type, active, expires_at, created_at, last_activity_at, updated_at`

func (s *Store) Create(ctx context.Context, session *sessions.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		session.ID, session.UserID, session.RefreshToken, session.DeviceInfo,
		session.IPAddress, session.UserAgent, session.LoginType, session.Active,
		session.ExpiresAt, session.CreatedAt, session.LastActivityAt, session.UpdatedAt,
	)
	return errors.Wrap(err, "[pgstore.Create] Exec")
}

func (s *Store) FindActive(ctx context.Context, sessionID, userID string) (*sessions.Session, error) {
	return s.findOne(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1 AND user_id = $2 AND active AND expires_at > now()
	`, sessionID, userID)
}

func (s *Store) FindActiveByRefreshToken(ctx context.Context, token, userID string) (*sessions.Session, error) {
	return s.findOne(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE refresh_token = $1 AND user_id = $2 AND active AND expires_at > now()
	`, token, userID)
}

func (s *Store) Update(ctx context.Context, sessionID string, patch sessions.Patch) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{sessionID}

	if patch.Active != nil && !*patch.Active {
		sets = append(sets, "active = FALSE")
	}
	if patch.ExpiresAt != nil {
		args = append(args, *patch.ExpiresAt)
		sets = append(sets, "expires_at = $"+strconv.Itoa(len(args)))
	}
	if patch.LastActivityAt != nil {
		args = append(args, *patch.LastActivityAt)
		sets = append(sets, "last_activity_at = $"+strconv.Itoa(len(args)))
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = $1
	`, args...)
	if err != nil {
		return errors.Wrap(err, "[pgstore.Update] Exec")
	}
	if tag.RowsAffected() == 0 {
		return sessions.ErrNotFound
	}
	return nil
}

func (s *Store) Rotate(ctx context.Context, sessionID, oldToken, newToken string, expiresAt, lastActivityAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET refresh_token = $3, expires_at = $4, last_activity_at = $5, updated_at = now()
		WHERE id = $1 AND refresh_token = $2 AND active AND expires_at > now()
	`, sessionID, oldToken, newToken, expiresAt, lastActivityAt)
	if err != nil {
		return false, errors.Wrap(err, "[pgstore.Rotate] Exec")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeactivateByRefreshToken(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET active = FALSE, updated_at = now()
		WHERE refresh_token = $1 AND active
	`, token)
	return errors.Wrap(err, "[pgstore.DeactivateByRefreshToken] Exec")
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[pgstore.ListByUser] Query")
	}
	defer rows.Close()

	var out []*sessions.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[pgstore.ListByUser] Scan")
		}
		out = append(out, session)
	}
	return out, errors.Wrap(rows.Err(), "[pgstore.ListByUser] rows")
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return errors.Wrap(err, "[pgstore.Delete] Exec")
}

func (s *Store) findOne(ctx context.Context, query string, args ...interface{}) (*sessions.Session, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[pgstore.findOne] Scan")
	}
	return session, nil
}

func scanSession(row pgx.Row) (*sessions.Session, error) {
	var s sessions.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.DeviceInfo, &s.IPAddress,
		&s.UserAgent, &s.LoginType, &s.Active, &s.ExpiresAt, &s.CreatedAt,
		&s.LastActivityAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
