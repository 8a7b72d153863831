package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tweeter/internal/domain"
	"tweeter/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	reset_password_token TEXT NULL UNIQUE,
	reset_password_sent_at DATETIME NULL,
	remember_created_at DATETIME NULL,
	sign_in_count INTEGER NOT NULL DEFAULT 0,
	current_sign_in_at DATETIME NULL,
	last_sign_in_at DATETIME NULL,
	current_sign_in_ip TEXT NOT NULL DEFAULT '',
	last_sign_in_ip TEXT NOT NULL DEFAULT '',
	avatar_file_name TEXT NOT NULL DEFAULT '',
	avatar_content_type TEXT NOT NULL DEFAULT '',
	avatar_file_size INTEGER NOT NULL DEFAULT 0,
	avatar_key_prefix TEXT NOT NULL DEFAULT '',
	avatar_updated_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const userColumns = `id, name, email, password_hash, reset_password_token, reset_password_sent_at,
	remember_created_at, sign_in_count, current_sign_in_at, last_sign_in_at, current_sign_in_ip, last_sign_in_ip,
	avatar_file_name, avatar_content_type, avatar_file_size, avatar_key_prefix, avatar_updated_at,
	created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (name, email, password_hash, avatar_file_name, avatar_content_type, avatar_file_size, avatar_key_prefix, avatar_updated_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Avatar.FileName,
		user.Avatar.ContentType,
		user.Avatar.Size,
		user.Avatar.KeyPrefix,
		nullTime(user.Avatar.UpdatedAt),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrConflict)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET name = ?, email = ?, avatar_file_name = ?, avatar_content_type = ?, avatar_file_size = ?,
	avatar_key_prefix = ?, avatar_updated_at = ?, updated_at = ?
WHERE id = ?`,
		user.Name,
		user.Email,
		user.Avatar.FileName,
		user.Avatar.ContentType,
		user.Avatar.Size,
		user.Avatar.KeyPrefix,
		nullTime(user.Avatar.UpdatedAt),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", repository.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res, "update user")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET password_hash = ?, reset_password_token = NULL, reset_password_sent_at = NULL, updated_at = ?
WHERE id = ?`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res, "update password")
}

func (r *UserRepository) SetResetToken(ctx context.Context, id int64, digest string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET reset_password_token = ?, reset_password_sent_at = ?
WHERE id = ?`,
		digest,
		sentAt.UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return expectAffected(res, "set reset token")
}

func (r *UserRepository) GetByResetToken(ctx context.Context, digest string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE reset_password_token = ?`, digest)
	return scanUser(row)
}

func (r *UserRepository) RecordSignIn(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET sign_in_count = ?, current_sign_in_at = ?, last_sign_in_at = ?, current_sign_in_ip = ?, last_sign_in_ip = ?,
	remember_created_at = ?
WHERE id = ?`,
		user.SignInCount,
		nullTime(user.CurrentSignInAt),
		nullTime(user.LastSignInAt),
		user.CurrentSignInIP,
		user.LastSignInIP,
		nullTime(user.RememberCreatedAt),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("record sign in: %w", err)
	}
	return expectAffected(res, "record sign in")
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Delete removes the user's tweets and then the user. Both statements share
// one transaction so a failure leaves neither half applied.
func (r *UserRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tweets WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user tweets: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err = expectAffected(res, "delete user"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user                               domain.User
		resetToken                         sql.NullString
		resetSentAt, rememberAt, currentAt sql.NullTime
		lastAt, avatarUpdatedAt            sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&resetToken,
		&resetSentAt,
		&rememberAt,
		&user.SignInCount,
		&currentAt,
		&lastAt,
		&user.CurrentSignInIP,
		&user.LastSignInIP,
		&user.Avatar.FileName,
		&user.Avatar.ContentType,
		&user.Avatar.Size,
		&user.Avatar.KeyPrefix,
		&avatarUpdatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.ResetPasswordToken = resetToken.String
	user.ResetPasswordSentAt = timePtr(resetSentAt)
	user.RememberCreatedAt = timePtr(rememberAt)
	user.CurrentSignInAt = timePtr(currentAt)
	user.LastSignInAt = timePtr(lastAt)
	user.Avatar.UpdatedAt = timePtr(avatarUpdatedAt)
	return &user, nil
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
