package quest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"partymatch/pkg/db"
)

type Repository interface {
	CreateQuest(ctx context.Context, tx *sql.Tx, q *Quest) error
	GetQuestByID(ctx context.Context, questID string) (*Quest, error)
	GetQuestWithLock(ctx context.Context, tx *sql.Tx, questID string) (*Quest, error)
	UpdateQuest(ctx context.Context, tx *sql.Tx, q *Quest) error
	DeleteQuest(ctx context.Context, questID string) error
	ListQuests(ctx context.Context, filters ListQuestsRequest) ([]*Quest, error)
	ListQuestsByCreator(ctx context.Context, creatorID string, filters ListQuestsRequest) ([]*Quest, error)
	ListOpenQuests(ctx context.Context, limit int) ([]*Quest, error)
	IncrementViewCount(ctx context.Context, questID string) error

	// Applications
	CreateApplication(ctx context.Context, tx *sql.Tx, a *Application) error
	GetApplicationByID(ctx context.Context, applicationID string) (*Application, error)
	ListQuestApplications(ctx context.Context, questID string) ([]*Application, error)
	ListUserApplications(ctx context.Context, applicantID string) ([]*Application, error)
	// ListApprovedApplications returns approved applications in the order
	// they were submitted, read inside the close transaction.
	ListApprovedApplications(ctx context.Context, tx *sql.Tx, questID string) ([]*Application, error)
	UpdateApplication(ctx context.Context, tx *sql.Tx, a *Application) error
	ExpirePendingApplications(ctx context.Context, tx *sql.Tx, questID string) error

	// Assignments
	ReplaceAssignments(ctx context.Context, tx *sql.Tx, questID string, userIDs []string) error
	ListAssignments(ctx context.Context, questID string) ([]string, error)

	WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{db: database}
}

const questColumns = `id, creator_id, parent_party_id, quest_type, title, description, objective,
	category, status, visibility, party_size_min, party_size_max, required_commitment,
	location_type, location_detail, starts_at, deadline, estimated_duration,
	auto_approve, is_publicized, internal_slots, public_slots, publicized_at,
	view_count, application_count, current_party_size,
	created_at, updated_at, activated_at, completed_at`

func scanQuest(scan func(dest ...any) error) (*Quest, error) {
	var q Quest
	var parentPartyID, locationDetail, estimatedDuration sql.NullString
	var startsAt, deadline, publicizedAt, activatedAt, completedAt sql.NullTime

	err := scan(
		&q.ID, &q.CreatorID, &parentPartyID, &q.QuestType, &q.Title, &q.Description, &q.Objective,
		&q.Category, &q.Status, &q.Visibility, &q.PartySizeMin, &q.PartySizeMax, &q.RequiredCommitment,
		&q.LocationType, &locationDetail, &startsAt, &deadline, &estimatedDuration,
		&q.AutoApprove, &q.IsPublicized, &q.InternalSlots, &q.PublicSlots, &publicizedAt,
		&q.ViewCount, &q.ApplicationCount, &q.CurrentPartySize,
		&q.CreatedAt, &q.UpdatedAt, &activatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	q.ParentPartyID = parentPartyID.String
	q.LocationDetail = locationDetail.String
	q.EstimatedDuration = estimatedDuration.String
	if startsAt.Valid {
		q.StartsAt = &startsAt.Time
	}
	if deadline.Valid {
		q.Deadline = &deadline.Time
	}
	if publicizedAt.Valid {
		q.PublicizedAt = &publicizedAt.Time
	}
	if activatedAt.Valid {
		q.ActivatedAt = &activatedAt.Time
	}
	if completedAt.Valid {
		q.CompletedAt = &completedAt.Time
	}
	return &q, nil
}

func (r *repository) CreateQuest(ctx context.Context, tx *sql.Tx, q *Quest) error {
	query := `
		INSERT INTO quests (
			id, creator_id, parent_party_id, quest_type, title, description, objective,
			category, status, visibility, party_size_min, party_size_max, required_commitment,
			location_type, location_detail, starts_at, deadline, estimated_duration,
			auto_approve, internal_slots, public_slots, current_party_size
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, NULLIF($15, ''), $16, $17, NULLIF($18, ''), $19, $20, $21, $22)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		q.ID, q.CreatorID, q.ParentPartyID, q.QuestType, q.Title, q.Description, q.Objective,
		q.Category, q.Status, q.Visibility, q.PartySizeMin, q.PartySizeMax, q.RequiredCommitment,
		q.LocationType, q.LocationDetail, q.StartsAt, q.Deadline, q.EstimatedDuration,
		q.AutoApprove, q.InternalSlots, q.PublicSlots, q.CurrentPartySize,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert quest: %w", err)
	}
	return nil
}

func (r *repository) GetQuestByID(ctx context.Context, questID string) (*Quest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = $1`, questID)
	q, err := scanQuest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query quest: %w", err)
	}
	return q, nil
}

// GetQuestWithLock locks the quest row for the lifetime of the caller's
// transaction so concurrent lifecycle transitions serialize.
func (r *repository) GetQuestWithLock(ctx context.Context, tx *sql.Tx, questID string) (*Quest, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = $1 FOR UPDATE`, questID)
	q, err := scanQuest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query quest for update: %w", err)
	}
	return q, nil
}

func (r *repository) UpdateQuest(ctx context.Context, tx *sql.Tx, q *Quest) error {
	query := `
		UPDATE quests
		SET title = $2, description = $3, objective = $4, category = $5, status = $6,
		    visibility = $7, party_size_min = $8, party_size_max = $9, required_commitment = $10,
		    location_type = $11, location_detail = NULLIF($12, ''), starts_at = $13, deadline = $14,
		    estimated_duration = NULLIF($15, ''), auto_approve = $16, is_publicized = $17,
		    internal_slots = $18, public_slots = $19, publicized_at = $20,
		    current_party_size = $21, activated_at = $22, completed_at = $23, updated_at = now()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		q.ID, q.Title, q.Description, q.Objective, q.Category, q.Status,
		q.Visibility, q.PartySizeMin, q.PartySizeMax, q.RequiredCommitment,
		q.LocationType, q.LocationDetail, q.StartsAt, q.Deadline,
		q.EstimatedDuration, q.AutoApprove, q.IsPublicized,
		q.InternalSlots, q.PublicSlots, q.PublicizedAt,
		q.CurrentPartySize, q.ActivatedAt, q.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrQuestNotFound
	}
	return nil
}

func (r *repository) DeleteQuest(ctx context.Context, questID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM quests WHERE id = $1`, questID)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrQuestNotFound
	}
	return nil
}

func (r *repository) ListQuests(ctx context.Context, filters ListQuestsRequest) ([]*Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filters.Category)
		argIdx++
	}
	if filters.QuestType != "" {
		query += fmt.Sprintf(" AND quest_type = $%d", argIdx)
		args = append(args, filters.QuestType)
		argIdx++
	}

	limit := filters.Limit
	if limit == 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filters.Offset)

	return r.queryQuests(ctx, query, args...)
}

func (r *repository) ListQuestsByCreator(ctx context.Context, creatorID string, filters ListQuestsRequest) ([]*Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE creator_id = $1`
	args := []any{creatorID}
	argIdx := 2

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filters.Status)
		argIdx++
	}

	limit := filters.Limit
	if limit == 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filters.Offset)

	return r.queryQuests(ctx, query, args...)
}

// ListOpenQuests feeds the discovery ranking with publicly visible
// recruiting quests.
func (r *repository) ListOpenQuests(ctx context.Context, limit int) ([]*Quest, error) {
	query := `
		SELECT ` + questColumns + `
		FROM quests
		WHERE status = 'RECRUITING' AND visibility = 'PUBLIC'
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.queryQuests(ctx, query, limit)
}

func (r *repository) queryQuests(ctx context.Context, query string, args ...any) ([]*Quest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func (r *repository) IncrementViewCount(ctx context.Context, questID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quests SET view_count = view_count + 1 WHERE id = $1`, questID)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

const applicationColumns = `id, quest_id, applicant_id, status, message, proposed_role,
	relevant_skills, reviewer_feedback, reviewed_at, created_at, updated_at`

func scanApplication(scan func(dest ...any) error) (*Application, error) {
	var a Application
	var proposedRole, relevantSkills, reviewerFeedback sql.NullString
	var reviewedAt sql.NullTime

	err := scan(
		&a.ID, &a.QuestID, &a.ApplicantID, &a.Status, &a.Message, &proposedRole,
		&relevantSkills, &reviewerFeedback, &reviewedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ProposedRole = proposedRole.String
	a.RelevantSkills = relevantSkills.String
	a.ReviewerFeedback = reviewerFeedback.String
	if reviewedAt.Valid {
		a.ReviewedAt = &reviewedAt.Time
	}
	return &a, nil
}

func (r *repository) CreateApplication(ctx context.Context, tx *sql.Tx, a *Application) error {
	query := `
		INSERT INTO quest_applications (id, quest_id, applicant_id, status, message, proposed_role, relevant_skills, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		a.ID, a.QuestID, a.ApplicantID, a.Status, a.Message, a.ProposedRole, a.RelevantSkills, a.ReviewedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	if db.IsUniqueViolation(err) {
		return ErrAlreadyApplied
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE quests SET application_count = application_count + 1 WHERE id = $1`,
		a.QuestID,
	); err != nil {
		return fmt.Errorf("bump application count: %w", err)
	}
	return nil
}

func (r *repository) GetApplicationByID(ctx context.Context, applicationID string) (*Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM quest_applications WHERE id = $1`, applicationID)
	a, err := scanApplication(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query application: %w", err)
	}
	return a, nil
}

func (r *repository) ListQuestApplications(ctx context.Context, questID string) ([]*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM quest_applications WHERE quest_id = $1 ORDER BY created_at ASC`
	return r.queryApplications(ctx, r.db, query, questID)
}

func (r *repository) ListUserApplications(ctx context.Context, applicantID string) ([]*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM quest_applications WHERE applicant_id = $1 ORDER BY created_at DESC`
	return r.queryApplications(ctx, r.db, query, applicantID)
}

func (r *repository) ListApprovedApplications(ctx context.Context, tx *sql.Tx, questID string) ([]*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM quest_applications
		WHERE quest_id = $1 AND status = 'APPROVED'
		ORDER BY created_at ASC
	`
	return r.queryApplications(ctx, tx, query, questID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *repository) queryApplications(ctx context.Context, q querier, query string, args ...any) ([]*Application, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	applications := make([]*Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		applications = append(applications, a)
	}
	return applications, rows.Err()
}

func (r *repository) UpdateApplication(ctx context.Context, tx *sql.Tx, a *Application) error {
	query := `
		UPDATE quest_applications
		SET status = $2, message = $3, proposed_role = NULLIF($4, ''),
		    relevant_skills = NULLIF($5, ''), reviewer_feedback = NULLIF($6, ''),
		    reviewed_at = $7, updated_at = now()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		a.ID, a.Status, a.Message, a.ProposedRole, a.RelevantSkills, a.ReviewerFeedback, a.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func (r *repository) ExpirePendingApplications(ctx context.Context, tx *sql.Tx, questID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE quest_applications
		SET status = 'EXPIRED', updated_at = now()
		WHERE quest_id = $1 AND status = 'PENDING'
	`, questID)
	if err != nil {
		return fmt.Errorf("expire pending applications: %w", err)
	}
	return nil
}

func (r *repository) ReplaceAssignments(ctx context.Context, tx *sql.Tx, questID string, userIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM quest_assignments WHERE quest_id = $1`, questID); err != nil {
		return fmt.Errorf("clear quest assignments: %w", err)
	}

	if len(userIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO quest_assignments (quest_id, user_id)
		SELECT $1, unnest($2::uuid[])
	`, questID, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("insert quest assignments: %w", err)
	}
	return nil
}

func (r *repository) ListAssignments(ctx context.Context, questID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM quest_assignments WHERE quest_id = $1 ORDER BY user_id`, questID)
	if err != nil {
		return nil, fmt.Errorf("query quest assignments: %w", err)
	}
	defer rows.Close()

	userIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan quest assignment: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

func (r *repository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return r.db.WithTransaction(ctx, isolation, fn)
}
