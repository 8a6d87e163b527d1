package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/internal/flow"
)

// Journal statuses recorded for each intake.
const (
	StatusReceived  = "received"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Record is one journaled intake row.
type Record struct {
	ID        int64      `db:"id"`
	TGUserID  int64      `db:"tg_user_id"`
	Name      string     `db:"name"`
	Phone     string     `db:"phone"`
	Status    string     `db:"status"`
	CRMLeadID *int64     `db:"crm_lead_id"`
	Cause     *string    `db:"cause"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// Store journals every completed intake to postgres so no lead is lost when
// the CRM is unreachable.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Insert journals a fresh intake and returns the journal row id.
func (s *Store) Insert(ctx context.Context, lead flow.LeadIntake) (int64, error) {
	const q = `
		INSERT INTO leads (tg_user_id, name, phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := s.db.QueryRowxContext(ctx, q,
		int64(lead.Identity), lead.Name, lead.Phone, StatusReceived, lead.SubmittedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert lead journal row: %w", err)
	}
	return id, nil
}

// MarkSubmitted records the CRM lead id after a successful submission.
func (s *Store) MarkSubmitted(ctx context.Context, id, crmLeadID int64) error {
	const q = `
		UPDATE leads SET status = $1, crm_lead_id = $2, updated_at = now()
		WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, q, StatusSubmitted, crmLeadID, id); err != nil {
		return fmt.Errorf("mark lead submitted: %w", err)
	}
	return nil
}

// MarkFailed records why the CRM submission did not go through.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause string) error {
	const q = `
		UPDATE leads SET status = $1, cause = $2, updated_at = now()
		WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, q, StatusFailed, cause, id); err != nil {
		return fmt.Errorf("mark lead failed: %w", err)
	}
	return nil
}

// Recent returns the most recently journaled intakes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	const q = `
		SELECT id, tg_user_id, name, phone, status, crm_lead_id, cause, created_at, updated_at
		FROM leads ORDER BY id DESC LIMIT $1`
	var out []Record
	if err := s.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, fmt.Errorf("select recent leads: %w", err)
	}
	return out, nil
}
