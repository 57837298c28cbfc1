package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"partymatch/pkg/db"
)

type Repository interface {
	CreateParty(ctx context.Context, tx *sql.Tx, p *Party) error
	GetPartyByID(ctx context.Context, partyID string) (*Party, error)
	GetPartyByQuest(ctx context.Context, questID string) (*Party, error)
	GetPartyWithLock(ctx context.Context, tx *sql.Tx, partyID string) (*Party, error)
	UpdateParty(ctx context.Context, tx *sql.Tx, p *Party) error

	// AddMember inserts a membership row, reactivating a previously
	// removed member in place. Returns ErrAlreadyMember when the user
	// is already active in the party.
	AddMember(ctx context.Context, tx *sql.Tx, m *Member) error
	GetMemberByID(ctx context.Context, memberID string) (*Member, error)
	GetPartyMembers(ctx context.Context, partyID string, activeOnly bool) ([]*Member, error)
	UpdateMember(ctx context.Context, tx *sql.Tx, m *Member) error
	DeactivateMember(ctx context.Context, tx *sql.Tx, memberID string) error

	IsActiveMember(ctx context.Context, partyID, userID string) (bool, error)
	IsLeader(ctx context.Context, partyID, userID string) (bool, error)
	ActiveMemberCount(ctx context.Context, partyID string) (int, error)
	GetUserParties(ctx context.Context, userID string) ([]*Party, error)

	WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{db: database}
}

const partyColumns = `id, quest_id, name, description, status, is_private, chat_channel_id, formed_at, completed_at, archived_at, created_at`

func scanParty(scan func(dest ...any) error) (*Party, error) {
	var p Party
	var name, description, chatChannelID sql.NullString
	var completedAt, archivedAt sql.NullTime

	err := scan(
		&p.ID, &p.QuestID, &name, &description, &p.Status, &p.IsPrivate,
		&chatChannelID, &p.FormedAt, &completedAt, &archivedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Name = name.String
	p.Description = description.String
	p.ChatChannelID = chatChannelID.String
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	if archivedAt.Valid {
		p.ArchivedAt = &archivedAt.Time
	}
	return &p, nil
}

func (r *repository) CreateParty(ctx context.Context, tx *sql.Tx, p *Party) error {
	query := `
		INSERT INTO parties (id, quest_id, name, description, status, is_private, chat_channel_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''))
		RETURNING formed_at, created_at
	`

	err := tx.QueryRowContext(ctx, query,
		p.ID, p.QuestID, p.Name, p.Description, p.Status, p.IsPrivate, p.ChatChannelID,
	).Scan(&p.FormedAt, &p.CreatedAt)

	if db.IsUniqueViolation(err) {
		return ErrPartyExists
	}
	if err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}

func (r *repository) GetPartyByID(ctx context.Context, partyID string) (*Party, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1`, partyID)
	p, err := scanParty(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query party: %w", err)
	}
	return p, nil
}

func (r *repository) GetPartyByQuest(ctx context.Context, questID string) (*Party, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE quest_id = $1`, questID)
	p, err := scanParty(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query party by quest: %w", err)
	}
	return p, nil
}

// GetPartyWithLock acquires a row-level lock inside the caller's
// transaction so concurrent membership changes serialize.
func (r *repository) GetPartyWithLock(ctx context.Context, tx *sql.Tx, partyID string) (*Party, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1 FOR UPDATE`, partyID)
	p, err := scanParty(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query party for update: %w", err)
	}
	return p, nil
}

func (r *repository) UpdateParty(ctx context.Context, tx *sql.Tx, p *Party) error {
	query := `
		UPDATE parties
		SET name = NULLIF($2, ''), description = NULLIF($3, ''), status = $4,
		    is_private = $5, chat_channel_id = NULLIF($6, ''),
		    completed_at = $7, archived_at = $8
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.IsPrivate, p.ChatChannelID,
		p.CompletedAt, p.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("update party: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func (r *repository) AddMember(ctx context.Context, tx *sql.Tx, m *Member) error {
	query := `
		INSERT INTO party_members (id, party_id, user_id, role, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (party_id, user_id) DO UPDATE
		SET role = EXCLUDED.role, status = 'active', joined_at = now(), left_at = NULL
		WHERE party_members.status = 'inactive'
		RETURNING id, joined_at
	`

	err := tx.QueryRowContext(ctx, query,
		m.ID, m.PartyID, m.UserID, m.Role, m.Status,
	).Scan(&m.ID, &m.JoinedAt)

	// The conflict target matched an active row, so the guarded
	// upsert touched nothing.
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("insert party member: %w", err)
	}
	return nil
}

const memberColumns = `id, party_id, user_id, role, status, joined_at, left_at`

func scanMember(scan func(dest ...any) error) (*Member, error) {
	var m Member
	var leftAt sql.NullTime

	err := scan(&m.ID, &m.PartyID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt, &leftAt)
	if err != nil {
		return nil, err
	}

	if leftAt.Valid {
		m.LeftAt = &leftAt.Time
	}
	return &m, nil
}

func (r *repository) GetMemberByID(ctx context.Context, memberID string) (*Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM party_members WHERE id = $1`, memberID)
	m, err := scanMember(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query party member: %w", err)
	}
	return m, nil
}

func (r *repository) GetPartyMembers(ctx context.Context, partyID string, activeOnly bool) ([]*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM party_members WHERE party_id = $1`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, partyID)
	if err != nil {
		return nil, fmt.Errorf("query party members: %w", err)
	}
	defer rows.Close()

	members := make([]*Member, 0)
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan party member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *repository) UpdateMember(ctx context.Context, tx *sql.Tx, m *Member) error {
	query := `UPDATE party_members SET role = $2, status = $3, left_at = $4 WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, m.ID, m.Role, m.Status, m.LeftAt)
	if err != nil {
		return fmt.Errorf("update party member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeactivateMember soft-deletes a membership so the join history
// survives for rating eligibility checks.
func (r *repository) DeactivateMember(ctx context.Context, tx *sql.Tx, memberID string) error {
	query := `
		UPDATE party_members
		SET status = 'inactive', left_at = now()
		WHERE id = $1 AND status = 'active'
	`

	result, err := tx.ExecContext(ctx, query, memberID)
	if err != nil {
		return fmt.Errorf("deactivate party member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *repository) IsActiveMember(ctx context.Context, partyID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM party_members WHERE party_id = $1 AND user_id = $2 AND status = 'active')`,
		partyID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check party membership: %w", err)
	}
	return exists, nil
}

func (r *repository) IsLeader(ctx context.Context, partyID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM party_members
			WHERE party_id = $1 AND user_id = $2 AND status = 'active' AND role IN ('OWNER', 'MODERATOR')
		)`,
		partyID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check party leadership: %w", err)
	}
	return exists, nil
}

func (r *repository) ActiveMemberCount(ctx context.Context, partyID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM party_members WHERE party_id = $1 AND status = 'active'`,
		partyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count party members: %w", err)
	}
	return count, nil
}

func (r *repository) GetUserParties(ctx context.Context, userID string) ([]*Party, error) {
	query := `
		SELECT ` + prefixedPartyColumns("p") + `
		FROM parties p
		INNER JOIN party_members pm ON pm.party_id = p.id
		WHERE pm.user_id = $1 AND pm.status = 'active'
		ORDER BY p.formed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user parties: %w", err)
	}
	defer rows.Close()

	parties := make([]*Party, 0)
	for rows.Next() {
		p, err := scanParty(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

func prefixedPartyColumns(alias string) string {
	return alias + `.id, ` + alias + `.quest_id, ` + alias + `.name, ` + alias + `.description, ` +
		alias + `.status, ` + alias + `.is_private, ` + alias + `.chat_channel_id, ` +
		alias + `.formed_at, ` + alias + `.completed_at, ` + alias + `.archived_at, ` + alias + `.created_at`
}

func (r *repository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return r.db.WithTransaction(ctx, isolation, fn)
}
