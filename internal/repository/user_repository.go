package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
	"github.com/iliyamo/ev-charge-reservation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, fullName, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, email, password_hash, role) VALUES (?,?,?,?)",
		fullName, email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,full_name,email,password_hash,role,phone_number,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,full_name,email,password_hash,role,phone_number,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdateProfile changes the display name and email of a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, email=? WHERE id=?",
		fullName, email, id)
	if err != nil && isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// UpdatePassword replaces the stored bcrypt hash of a user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// CountByRole returns the number of users per role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

// CountRecentUsers returns how many non-admin users registered since
// the given time.
func (r *UserRepo) CountRecentUsers(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role='user' AND created_at >= ?",
		since.UTC()).Scan(&n)
	return n, err
}

// RecentUser is one row of the newest-signups admin view.
type RecentUser struct {
	ID        uint64    `json:"id"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListRecentUsers returns the newest non-admin registrations.
func (r *UserRepo) ListRecentUsers(ctx context.Context, limit int) ([]RecentUser, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, full_name, created_at FROM users WHERE role='user' ORDER BY created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RecentUser, 0, limit)
	for rows.Next() {
		var u RecentUser
		if err := rows.Scan(&u.ID, &u.FullName, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
