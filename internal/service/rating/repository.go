package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"partymatch/pkg/db"
)

type Repository interface {
	CreateRating(ctx context.Context, tx *sql.Tx, r *Rating) error
	GetRatingByID(ctx context.Context, ratingID string) (*Rating, error)
	GetRatingForPair(ctx context.Context, partyID, raterID, ratedUserID string) (*Rating, error)
	UpdateRating(ctx context.Context, tx *sql.Tx, r *Rating) error
	DeleteRating(ctx context.Context, tx *sql.Tx, ratingID string) error

	ListPartyRatings(ctx context.Context, partyID string) ([]*Rating, error)
	ListReceivedRatings(ctx context.Context, userID string) ([]*Rating, error)
	ListGivenRatings(ctx context.Context, userID string) ([]*Rating, error)
	GetUserSummary(ctx context.Context, userID string) (*Summary, error)

	WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{db: database}
}

const ratingColumns = `id, party_id, rater_id, rated_user_id, overall_rating, collaboration_rating,
	communication_rating, reliability_rating, skill_rating, review_text,
	would_collaborate_again, created_at, updated_at`

func scanRating(scan func(dest ...any) error) (*Rating, error) {
	var r Rating
	var reviewText sql.NullString

	err := scan(
		&r.ID, &r.PartyID, &r.RaterID, &r.RatedUserID, &r.OverallRating, &r.CollaborationRating,
		&r.CommunicationRating, &r.ReliabilityRating, &r.SkillRating, &reviewText,
		&r.WouldCollaborate, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ReviewText = reviewText.String
	return &r, nil
}

func (r *repository) CreateRating(ctx context.Context, tx *sql.Tx, rating *Rating) error {
	query := `
		INSERT INTO ratings (
			id, party_id, rater_id, rated_user_id, overall_rating, collaboration_rating,
			communication_rating, reliability_rating, skill_rating, review_text, would_collaborate_again
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		rating.ID, rating.PartyID, rating.RaterID, rating.RatedUserID,
		rating.OverallRating, rating.CollaborationRating, rating.CommunicationRating,
		rating.ReliabilityRating, rating.SkillRating, rating.ReviewText, rating.WouldCollaborate,
	).Scan(&rating.CreatedAt, &rating.UpdatedAt)

	if db.IsUniqueViolation(err) {
		return ErrAlreadyRated
	}
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (r *repository) GetRatingByID(ctx context.Context, ratingID string) (*Rating, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = $1`, ratingID)
	rating, err := scanRating(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rating: %w", err)
	}
	return rating, nil
}

func (r *repository) GetRatingForPair(ctx context.Context, partyID, raterID, ratedUserID string) (*Rating, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE party_id = $1 AND rater_id = $2 AND rated_user_id = $3`,
		partyID, raterID, ratedUserID,
	)
	rating, err := scanRating(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rating for pair: %w", err)
	}
	return rating, nil
}

func (r *repository) UpdateRating(ctx context.Context, tx *sql.Tx, rating *Rating) error {
	query := `
		UPDATE ratings
		SET overall_rating = $2, collaboration_rating = $3, communication_rating = $4,
		    reliability_rating = $5, skill_rating = $6, review_text = NULLIF($7, ''),
		    would_collaborate_again = $8, updated_at = now()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		rating.ID, rating.OverallRating, rating.CollaborationRating, rating.CommunicationRating,
		rating.ReliabilityRating, rating.SkillRating, rating.ReviewText, rating.WouldCollaborate,
	)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (r *repository) DeleteRating(ctx context.Context, tx *sql.Tx, ratingID string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE id = $1`, ratingID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (r *repository) ListPartyRatings(ctx context.Context, partyID string) ([]*Rating, error) {
	return r.queryRatings(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE party_id = $1 ORDER BY created_at DESC`, partyID)
}

func (r *repository) ListReceivedRatings(ctx context.Context, userID string) ([]*Rating, error) {
	return r.queryRatings(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE rated_user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *repository) ListGivenRatings(ctx context.Context, userID string) ([]*Rating, error) {
	return r.queryRatings(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE rater_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *repository) queryRatings(ctx context.Context, query string, args ...any) ([]*Rating, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]*Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

func (r *repository) GetUserSummary(ctx context.Context, userID string) (*Summary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(overall_rating), 0),
		       COALESCE(AVG(collaboration_rating), 0),
		       COALESCE(AVG(communication_rating), 0),
		       COALESCE(AVG(reliability_rating), 0),
		       COALESCE(AVG(skill_rating), 0),
		       COALESCE(AVG(CASE WHEN would_collaborate_again THEN 100.0 ELSE 0.0 END), 0)
		FROM ratings
		WHERE rated_user_id = $1
	`

	s := &Summary{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.TotalRatings, &s.AverageOverall, &s.AverageCollaboration,
		&s.AverageCommunication, &s.AverageReliability, &s.AverageSkill,
		&s.PositiveFeedbackPct,
	)
	if err != nil {
		return nil, fmt.Errorf("query rating summary: %w", err)
	}
	return s, nil
}

func (r *repository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return r.db.WithTransaction(ctx, isolation, fn)
}
