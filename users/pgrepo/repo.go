package pgrepo

import (
	"context"
	_ "embed"

	"github.com/google/uuid"
	"github.com/inkwell-cms/auth-service/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

var _ users.Repo = (*Repo)(nil)

// Repo implements users.Repo on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// EnsureSchema creates the users table if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return errors.Wrap(err, "[pgrepo.EnsureSchema] Exec")
}

const userColumns = `id, email, name, image_url, password_hash, roles, verified, status, created_at, last_login_at`

func (r *Repo) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			password_hash = EXCLUDED.password_hash,
			roles = EXCLUDED.roles,
			verified = EXCLUDED.verified,
			status = EXCLUDED.status
	`, user.ID, user.Email, user.Name, user.ImageURL, user.PasswordHash,
		user.RoleIDs(), user.Verified, string(user.Status), user.CreatedAt, user.LastLoginAt)
	return errors.Wrap(err, "[pgrepo.Upsert] Exec")
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repo) SetLastLogin(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "[pgrepo.SetLastLogin] Exec")
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return errors.Wrap(err, "[pgrepo.Delete] Exec")
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *Repo) findOne(ctx context.Context, query string, args ...interface{}) (*users.User, error) {
	var (
		u      users.User
		roles  []string
		status string
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.Name, &u.ImageURL, &u.PasswordHash,
		&roles, &u.Verified, &status, &u.CreatedAt, &u.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[pgrepo.findOne] Scan")
	}

	u.Status = users.Status(status)
	for _, role := range roles {
		u.Roles = append(u.Roles, users.RoleType(role))
	}
	return &u, nil
}
