package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mcp-events/ticketflow/internal/entity"
)

type purchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	participants, err := json.Marshal(purchase.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}

	query := `
		INSERT INTO purchases (
			id, event_id, provider_order_id, purchase_type, status,
			quantity, amount, payment_method, purchase_mode,
			participants, non_members, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query,
		purchase.ID,
		purchase.EventID,
		purchase.ProviderOrderID,
		purchase.PurchaseType,
		purchase.Status,
		purchase.Quantity,
		purchase.Amount,
		purchase.PaymentMethod,
		purchase.PurchaseMode,
		participants,
		pq.Array(purchase.NonMembers),
		now,
		now,
	); err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	purchase.CreatedAt = now
	purchase.UpdatedAt = now
	return nil
}

const purchaseColumns = `
	id, event_id, provider_order_id, purchase_type, status,
	quantity, amount, payment_method, purchase_mode,
	participants, non_members, created_at, updated_at
`

func scanPurchase(row interface{ Scan(...interface{}) error }) (*entity.Purchase, error) {
	var p entity.Purchase
	var participants []byte
	var nonMembers pq.StringArray

	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.ProviderOrderID,
		&p.PurchaseType,
		&p.Status,
		&p.Quantity,
		&p.Amount,
		&p.PaymentMethod,
		&p.PurchaseMode,
		&participants,
		&nonMembers,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &p.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
	}
	p.NonMembers = []string(nonMembers)
	return &p, nil
}

func (r *purchaseRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE provider_order_id = $1`

	purchase, err := scanPurchase(r.db.QueryRowContext(ctx, query, providerOrderID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return purchase, nil
}

func (r *purchaseRepository) GetAll(ctx context.Context) ([]*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*entity.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// Complete runs the whole success path in one transaction so a capture can
// never leave the purchase half-mutated: status flip, ticket rows and member
// enrollment all commit together or not at all.
func (r *purchaseRepository) Complete(ctx context.Context, purchase *entity.Purchase, tickets []*entity.Ticket, enroll []*entity.Member) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	result, err := tx.ExecContext(ctx,
		`UPDATE purchases SET status = $2, payment_method = $3, updated_at = $4 WHERE id = $1 AND status = $5`,
		purchase.ID, entity.PurchaseStatusCompleted, purchase.PaymentMethod, now, entity.PurchaseStatusCreated,
	)
	if err != nil {
		return fmt.Errorf("failed to complete purchase: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check purchase update: %w", err)
	}
	if affected == 0 {
		return entity.ErrPurchaseNotFound
	}

	for _, t := range tickets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (
				id, purchase_id, event_id, name, surname, email, phone,
				birthdate, newsletter_consent, created_at
			) VALUES ($1, $2, $3, $4, $5, LOWER($6), $7, $8, $9, $10)
		`,
			t.ID, t.PurchaseID, t.EventID, t.Name, t.Surname, t.Email,
			t.Phone, t.Birthdate, t.NewsletterConsent, now,
		); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
	}

	for _, m := range enroll {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO members (id, name, surname, email, birthdate, source, created_at)
			VALUES ($1, $2, $3, LOWER($4), $5, $6, $7)
			ON CONFLICT (email) DO NOTHING
		`,
			m.ID, m.Name, m.Surname, m.Email, m.Birthdate, m.Source, now,
		); err != nil {
			return fmt.Errorf("failed to enroll member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	purchase.Status = entity.PurchaseStatusCompleted
	purchase.UpdatedAt = now
	return nil
}

func (r *purchaseRepository) Fail(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		entity.PurchaseStatusFailed, time.Now(), id, entity.PurchaseStatusCreated,
	)
	if err != nil {
		return fmt.Errorf("failed to fail purchase %s: %w", id, err)
	}
	return nil
}

func (r *purchaseRepository) FailStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET status = $1, updated_at = $2 WHERE status = $3 AND created_at < $4`,
		entity.PurchaseStatusFailed, time.Now(), entity.PurchaseStatusCreated, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale purchases: %w", err)
	}
	return result.RowsAffected()
}

func (r *purchaseRepository) TicketedEmails(ctx context.Context, eventID string, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT email FROM tickets
		WHERE event_id = $1 AND email = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, eventID, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("failed to query ticketed emails: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		found = append(found, email)
	}
	return found, rows.Err()
}

const ticketColumns = `
	id, purchase_id, event_id, name, surname, email, phone,
	birthdate, newsletter_consent, checked_in_at, created_at
`

func scanTicket(row interface{ Scan(...interface{}) error }) (*entity.Ticket, error) {
	var t entity.Ticket
	err := row.Scan(
		&t.ID, &t.PurchaseID, &t.EventID, &t.Name, &t.Surname, &t.Email,
		&t.Phone, &t.Birthdate, &t.NewsletterConsent, &t.CheckedInAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *purchaseRepository) GetTicketsByEvent(ctx context.Context, eventID string) ([]*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 ORDER BY surname, name`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *purchaseRepository) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// CheckInTicket stamps the ticket once; a second attempt reports
// ErrAlreadyCheckedIn so the front desk sees duplicates.
func (r *purchaseRepository) CheckInTicket(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET checked_in_at = $2 WHERE id = $1 AND checked_in_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to check in ticket: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check check-in result: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetTicket(ctx, id); err != nil {
			return err
		}
		return entity.ErrAlreadyCheckedIn
	}
	return nil
}
