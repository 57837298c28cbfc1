package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"partymatch/pkg/db"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	TouchLastActive(ctx context.Context, userID string) error

	// RecomputeReputation rewrites the stored reputation score as the mean
	// of overall ratings received, inside the caller's transaction.
	RecomputeReputation(ctx context.Context, tx *sql.Tx, userID string) error
	// IncrementCompletedQuests bumps the completed-quest counter inside the
	// caller's transaction.
	IncrementCompletedQuests(ctx context.Context, tx *sql.Tx, userID string) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{db: database}
}

const userColumns = `id, email, full_name, bio, location, timezone, is_active, is_superuser,
       reputation_score, total_completed_quests, created_at, updated_at, last_active`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var bio, location, timezone sql.NullString
	var lastActive sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&bio,
		&location,
		&timezone,
		&u.IsActive,
		&u.IsSuperuser,
		&u.ReputationScore,
		&u.TotalCompletedQuests,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastActive,
	)
	if err != nil {
		return nil, err
	}

	u.Bio = bio.String
	u.Location = location.String
	u.Timezone = timezone.String
	if lastActive.Valid {
		u.LastActive = &lastActive.Time
	}
	return &u, nil
}

func (r *repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, full_name, bio, location, timezone, is_active, is_superuser)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.Bio,
		user.Location,
		user.Timezone,
		user.IsActive,
		user.IsSuperuser,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if db.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repository) GetUserByID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *repository) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET full_name = $2, bio = NULLIF($3, ''), location = NULLIF($4, ''),
		    timezone = NULLIF($5, ''), updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.FullName,
		user.Bio,
		user.Location,
		user.Timezone,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) TouchLastActive(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_active = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

// RecomputeReputation recalculates the score from the ratings table;
// it is never patched incrementally.
func (r *repository) RecomputeReputation(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `
		UPDATE users
		SET reputation_score = COALESCE(
		        (SELECT ROUND(AVG(overall_rating)::numeric, 2) FROM ratings WHERE rated_user_id = $1),
		        0.00),
		    updated_at = now()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("recompute reputation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) IncrementCompletedQuests(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `UPDATE users SET total_completed_quests = total_completed_quests + 1, updated_at = now() WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("increment completed quests: %w", err)
	}
	return nil
}
