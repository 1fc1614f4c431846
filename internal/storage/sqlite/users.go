package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

const userColumns = `id, full_name, email, handle, password_hash, failed_logins, locked_until, refresh_token_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u       models.User
		locked  sql.NullInt64
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Handle, &u.PasswordHash, &u.FailedLogins, &locked, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	if locked.Valid {
		u.LockedUntil = fromMillis(locked.Int64)
	}
	u.RefreshTokenID = refresh.String
	return u, nil
}

func (s *Store) queryUser(ctx context.Context, where string, args ...any) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.New(apperr.NotFound, "user doesn't exist")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user. Email and handle must both be unused.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	var existing int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ? OR handle = ?`, u.Email, u.Handle).Scan(&existing)
	if err != nil {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if existing > 0 {
		return models.User{}, apperr.New(apperr.Conflict, "user with email or handle already exists")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users(full_name, email, handle, password_hash) VALUES(?, ?, ?, ?)`,
		strings.TrimSpace(u.FullName), u.Email, u.Handle, u.PasswordHash)
	if isUniqueViolation(err) {
		return models.User{}, apperr.Wrap(apperr.Conflict, err, "user with email or handle already exists")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.queryUser(ctx, `id = ?`, id)
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.queryUser(ctx, `email = ?`, email)
}

// FindUserByLogin fetches the user matching either identifier. Blank
// identifiers never match.
func (s *Store) FindUserByLogin(ctx context.Context, email, handle string) (models.User, error) {
	return s.queryUser(ctx, `(? <> '' AND email = ?) OR (? <> '' AND handle = ?)`, email, email, handle, handle)
}

// UsersByIDs resolves a set of user ids; unknown ids are skipped.
func (s *Store) UsersByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	users := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// RecordFailedLogin counts one failed attempt in a single statement so that
// parallel attempts never overwrite each other. An elapsed lockout restarts
// the counter at 1. Reaching maxAttempts sets locked_until to lockUntil; an
// active lockout is left as it is. It returns the stored counter and deadline.
func (s *Store) RecordFailedLogin(ctx context.Context, id int64, now time.Time, maxAttempts int, lockUntil time.Time) (int, time.Time, error) {
	const query = `
UPDATE users SET
	failed_logins = CASE
		WHEN locked_until IS NOT NULL AND locked_until <= :now THEN 1
		ELSE failed_logins + 1
	END,
	locked_until = CASE
		WHEN locked_until IS NOT NULL AND locked_until > :now THEN locked_until
		WHEN (CASE WHEN locked_until IS NOT NULL AND locked_until <= :now THEN 1 ELSE failed_logins + 1 END) >= :max THEN :until
		ELSE NULL
	END
WHERE id = :id
RETURNING failed_logins, locked_until`

	var (
		failed int
		locked sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query,
		sql.Named("now", toMillis(now)),
		sql.Named("max", maxAttempts),
		sql.Named("until", toMillis(lockUntil)),
		sql.Named("id", id),
	).Scan(&failed, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, apperr.New(apperr.NotFound, "user doesn't exist")
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("record failed login: %w", err)
	}
	if !locked.Valid {
		return failed, time.Time{}, nil
	}
	return failed, fromMillis(locked.Int64), nil
}

// ClearFailedLogins resets the counter after a successful login. It refuses
// with a Locked error when a lockout became active in the meantime.
func (s *Store) ClearFailedLogins(ctx context.Context, id int64, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET failed_logins = 0, locked_until = NULL
WHERE id = ? AND (locked_until IS NULL OR locked_until <= ?)`, id, toMillis(now))
	if err != nil {
		return fmt.Errorf("clear failed logins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Newf(apperr.Locked, "account is locked until %s", user.LockedUntil.Format(time.RFC3339))
}

// SetRefreshToken stores the id of the user's current refresh token. An
// empty id clears it.
func (s *Store) SetRefreshToken(ctx context.Context, id int64, tokenID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET refresh_token_id = ? WHERE id = ?`, nullString(tokenID), id)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return expectAffected(res, "user doesn't exist")
}

func expectAffected(res sql.Result, notFound string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.New(apperr.NotFound, notFound)
	}
	return nil
}
