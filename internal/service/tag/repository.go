package tag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"partymatch/pkg/db"
)

type Repository interface {
	CreateTag(ctx context.Context, t *Tag) error
	GetTagByID(ctx context.Context, tagID string) (*Tag, error)
	ListTags(ctx context.Context, filters ListTagsRequest) ([]*Tag, error)
	UpdateTag(ctx context.Context, t *Tag) error
	DeleteTag(ctx context.Context, tagID string) error

	// ResolveSlugs maps slugs to tags, preserving input order.
	ResolveSlugs(ctx context.Context, slugs []string) ([]*Tag, error)

	// User tags
	ReplaceUserTags(ctx context.Context, userID string, entries []UserTagEntry) error
	GetUserTags(ctx context.Context, userID string) ([]*UserTag, error)

	// Quest tags, written inside the quest-creation transaction.
	AttachQuestTags(ctx context.Context, tx *sql.Tx, questID string, tagIDs []string) error
	QuestTagSlugs(ctx context.Context, questID string) ([]string, error)

	WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{db: database}
}

const tagColumns = `id, name, slug, category, description, status, suggested_by, usage_count, created_at, updated_at`

func scanTag(scan func(dest ...any) error) (*Tag, error) {
	var t Tag
	var description sql.NullString
	var suggestedBy sql.NullString

	err := scan(
		&t.ID, &t.Name, &t.Slug, &t.Category, &description, &t.Status,
		&suggestedBy, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if suggestedBy.Valid {
		t.SuggestedBy = &suggestedBy.String
	}
	return &t, nil
}

func (r *repository) CreateTag(ctx context.Context, t *Tag) error {
	query := `
		INSERT INTO tags (id, name, slug, category, description, status, suggested_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Slug, t.Category, t.Description, t.Status, t.SuggestedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)

	if db.IsUniqueViolation(err) {
		return ErrTagExists
	}
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (r *repository) GetTagByID(ctx context.Context, tagID string) (*Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, tagID)
	t, err := scanTag(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tag: %w", err)
	}
	return t, nil
}

func (r *repository) ListTags(ctx context.Context, filters ListTagsRequest) ([]*Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filters.Category)
		argIdx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argIdx)
		args = append(args, "%"+strings.TrimSpace(filters.Search)+"%")
		argIdx++
	}

	limit := filters.Limit
	if limit == 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY usage_count DESC, name ASC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]*Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *repository) UpdateTag(ctx context.Context, t *Tag) error {
	query := `
		UPDATE tags
		SET name = $2, description = NULLIF($3, ''), status = $4, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Description, t.Status)
	if db.IsUniqueViolation(err) {
		return ErrTagExists
	}
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *repository) DeleteTag(ctx context.Context, tagID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *repository) ResolveSlugs(ctx context.Context, slugs []string) ([]*Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + tagColumns + ` FROM tags WHERE slug = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("query tags by slug: %w", err)
	}
	defer rows.Close()

	bySlug := make(map[string]*Tag, len(slugs))
	for rows.Next() {
		t, err := scanTag(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		bySlug[t.Slug] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]*Tag, 0, len(slugs))
	for _, slug := range slugs {
		t, ok := bySlug[slug]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSlug, slug)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (r *repository) ReplaceUserTags(ctx context.Context, userID string, entries []UserTagEntry) error {
	return r.WithTransaction(ctx, sql.LevelReadCommitted, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_tags WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear user tags: %w", err)
		}

		for _, entry := range entries {
			query := `
				INSERT INTO user_tags (user_id, tag_id, proficiency_level, is_primary)
				SELECT $1, id, NULLIF($3, ''), $4 FROM tags WHERE slug = $2
			`
			result, err := tx.ExecContext(ctx, query, userID, entry.Slug, entry.ProficiencyLevel, entry.IsPrimary)
			if err != nil {
				return fmt.Errorf("insert user tag: %w", err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			if rows == 0 {
				return fmt.Errorf("%w: %s", ErrUnknownSlug, entry.Slug)
			}
		}
		return nil
	})
}

func (r *repository) GetUserTags(ctx context.Context, userID string) ([]*UserTag, error) {
	query := `
		SELECT ut.user_id, ut.tag_id, t.slug, t.name, ut.proficiency_level, ut.is_primary, ut.created_at
		FROM user_tags ut
		INNER JOIN tags t ON t.id = ut.tag_id
		WHERE ut.user_id = $1
		ORDER BY ut.is_primary DESC, t.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user tags: %w", err)
	}
	defer rows.Close()

	tags := make([]*UserTag, 0)
	for rows.Next() {
		var ut UserTag
		var proficiency sql.NullString
		if err := rows.Scan(&ut.UserID, &ut.TagID, &ut.Slug, &ut.Name, &proficiency, &ut.IsPrimary, &ut.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user tag: %w", err)
		}
		ut.ProficiencyLevel = proficiency.String
		tags = append(tags, &ut)
	}
	return tags, rows.Err()
}

func (r *repository) AttachQuestTags(ctx context.Context, tx *sql.Tx, questID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quest_tags (quest_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			questID, tagID,
		); err != nil {
			return fmt.Errorf("attach quest tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = usage_count + 1 WHERE id = $1`,
			tagID,
		); err != nil {
			return fmt.Errorf("bump tag usage: %w", err)
		}
	}
	return nil
}

func (r *repository) QuestTagSlugs(ctx context.Context, questID string) ([]string, error) {
	query := `
		SELECT t.slug
		FROM quest_tags qt
		INNER JOIN tags t ON t.id = qt.tag_id
		WHERE qt.quest_id = $1
		ORDER BY t.slug
	`

	rows, err := r.db.QueryContext(ctx, query, questID)
	if err != nil {
		return nil, fmt.Errorf("query quest tags: %w", err)
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan quest tag: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (r *repository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return r.db.WithTransaction(ctx, isolation, fn)
}
