package pgrepo

import (
	"context"
	_ "embed"

	"github.com/inkwell-cms/auth-service/history"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

var _ history.Repo = (*Repo)(nil)

// Repo implements history.Repo on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// EnsureSchema creates the login_history table if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return errors.Wrap(err, "[pgrepo.EnsureSchema] Exec")
}

func (r *Repo) Record(ctx context.Context, entry *history.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_history (id, user_id, email, ip_address, user_agent, login_type, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.UserID, entry.Email, entry.IPAddress, entry.UserAgent, entry.LoginType, entry.Success, entry.CreatedAt)
	return errors.Wrap(err, "[pgrepo.Record] Exec")
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, email, ip_address, user_agent, login_type, success, created_at
		FROM login_history
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[pgrepo.ListByUser] Query")
	}
	defer rows.Close()

	var out []*history.Entry
	for rows.Next() {
		var e history.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.IPAddress, &e.UserAgent, &e.LoginType, &e.Success, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "[pgrepo.ListByUser] Scan")
		}
		out = append(out, &e)
	}
	return out, errors.Wrap(rows.Err(), "[pgrepo.ListByUser] rows")
}
