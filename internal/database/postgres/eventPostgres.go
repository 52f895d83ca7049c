package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mcp-events/ticketflow/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `
	id, title, date, start_time, end_time, location,
	price, fee, membership_fee, lineup, note, active, image_url,
	only_members, purchase_policy, photos_ready, created_at, updated_at
`

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (
			id, title, date, start_time, end_time, location,
			price, fee, membership_fee, lineup, note, active, image_url,
			only_members, purchase_policy, photos_ready, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Date,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Price,
		event.Fee,
		event.MembershipFee,
		pq.Array(event.Lineup),
		event.Note,
		event.Active,
		event.ImageURL,
		event.OnlyMembers,
		event.PurchasePolicy,
		event.PhotosReady,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

func (r *eventRepository) scanEvent(row interface{ Scan(...interface{}) error }) (*entity.Event, error) {
	var event entity.Event
	var lineup pq.StringArray

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Date,
		&event.StartTime,
		&event.EndTime,
		&event.Location,
		&event.Price,
		&event.Fee,
		&event.MembershipFee,
		&lineup,
		&event.Note,
		&event.Active,
		&event.ImageURL,
		&event.OnlyMembers,
		&event.PurchasePolicy,
		&event.PhotosReady,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Lineup = []string(lineup)
	return &event, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := r.scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date DESC`
	return r.queryEvents(ctx, query)
}

func (r *eventRepository) GetActive(ctx context.Context) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE active = TRUE ORDER BY date ASC`
	return r.queryEvents(ctx, query)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*entity.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events SET
			title = $2, date = $3, start_time = $4, end_time = $5, location = $6,
			price = $7, fee = $8, membership_fee = $9, lineup = $10, note = $11,
			active = $12, image_url = $13, only_members = $14, purchase_policy = $15,
			photos_ready = $16, updated_at = $17
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Date,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Price,
		event.Fee,
		event.MembershipFee,
		pq.Array(event.Lineup),
		event.Note,
		event.Active,
		event.ImageURL,
		event.OnlyMembers,
		event.PurchasePolicy,
		event.PhotosReady,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}
