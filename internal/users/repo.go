package users

import (
	"context"
	"errors"

	"github.com/2beens/memberhub/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUserExists            = errors.New("username or email already taken")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailNotFound         = errors.New("email not found")
	ErrTokenInvalidOrExpired = errors.New("reset token invalid or expired")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// EnsureTable creates the users table if it does not exist yet.
// Not a migration system, just the same bootstrapping a fresh
// deployment needs.
func (r *Repo) EnsureTable(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE,
			password TEXT NOT NULL,
			admin BOOLEAN NOT NULL DEFAULT FALSE,
			reset_token TEXT,
			reset_expire BIGINT
		);`,
	)
	return err
}

func (r *Repo) Create(ctx context.Context, user *User) error {
	if user.Username == "" || user.PasswordHash == "" {
		return errors.New("username or password hash empty")
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id;`,
		user.Username, user.Email, user.PasswordHash,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUserExists
		}
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUserExists
		}
		return err
	}

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			user.ID = id
			return nil
		}
	}

	// the insert error can surface only after the rows are drained
	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUserExists
		}
		return err
	}

	return errors.New("unexpected error, failed to insert user")
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(
		ctx,
		`SELECT id, username, email, password, admin, reset_token, reset_expire
			FROM users WHERE username = $1;`,
		username,
	)
}

func (r *Repo) GetByID(ctx context.Context, id int) (*User, error) {
	return r.getOne(
		ctx,
		`SELECT id, username, email, password, admin, reset_token, reset_expire
			FROM users WHERE id = $1;`,
		id,
	)
}

func (r *Repo) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.ResetToken, &user.ResetExpire,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repo) All(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, email, password, admin, reset_token, reset_expire
			FROM users ORDER BY id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allUsers []User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.IsAdmin, &user.ResetToken, &user.ResetExpire,
		); err != nil {
			return nil, err
		}
		allUsers = append(allUsers, user)
	}

	return allUsers, rows.Err()
}

// Delete removes the user row; a missing row is not an error,
// mirroring the admin panel semantics
func (r *Repo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Tracef("user %d not deleted, no such row", id)
	}
	return nil
}

// SetResetToken stores the reset token and its expiry (epoch millis) on
// the user matching the email; any prior outstanding token is overwritten
func (r *Repo) SetResetToken(ctx context.Context, email, token string, expire int64) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET reset_token = $1, reset_expire = $2 WHERE email = $3`,
		token, expire, email,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}
	return nil
}

// GetByValidResetToken returns the user holding the token, provided the
// token has not expired yet (now is epoch millis)
func (r *Repo) GetByValidResetToken(ctx context.Context, token string, now int64) (*User, error) {
	var user User
	err := r.db.QueryRow(
		ctx,
		`SELECT id, username, email, password, admin, reset_token, reset_expire
			FROM users WHERE reset_token = $1 AND reset_expire > $2;`,
		token, now,
	).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.ResetToken, &user.ResetExpire,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePasswordClearToken sets the new password hash and clears the
// reset token and expiry in a single statement, so the token cannot be
// replayed after a successful reset
func (r *Repo) UpdatePasswordClearToken(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET password = $1, reset_token = NULL, reset_expire = NULL WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
