package repos

import (
	"context"
	"database/sql"
	"errors"

	"lukamath/internal/domain"

	"github.com/jmoiron/sqlx"
)

const userCols = `id,email,first_name,last_name,password_hash,role,verified,language,created_at,updated_at,deleted_at`

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("not found")

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ByEmail matches case-insensitively and skips soft-deleted users.
func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?) AND deleted_at IS NULL`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE id=? AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// EmailTaken also counts soft-deleted users, since the address stays reserved.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`, email)
	return n > 0, err
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users(id,email,first_name,last_name,password_hash,role,verified,language,created_at)
		VALUES(?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Hash, u.Role, u.Verified, u.Language)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, first, last, language string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET first_name=?, last_name=?, language=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND deleted_at IS NULL
	`, first, last, language, id)
	return affected(res, err)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND deleted_at IS NULL
	`, hash, id)
	return affected(res, err)
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=? AND deleted_at IS NULL
	`, role, id)
	return affected(res, err)
}

// SoftDelete marks the user deleted. Homework and submissions stay for audit.
func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET deleted_at=CURRENT_TIMESTAMP
		WHERE id=? AND deleted_at IS NULL
	`, id)
	return affected(res, err)
}

// List returns live users, optionally filtered by role ("" for all).
func (r *UserRepo) List(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	var err error
	if role == "" {
		err = r.DB.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users WHERE deleted_at IS NULL ORDER BY email`)
	} else {
		err = r.DB.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users WHERE deleted_at IS NULL AND role=? ORDER BY email`, role)
	}
	return out, err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
