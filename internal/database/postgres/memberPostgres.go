package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mcp-events/ticketflow/internal/entity"
)

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *entity.Member) error {
	query := `
		INSERT INTO members (id, name, surname, email, birthdate, source, created_at)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query,
		member.ID,
		member.Name,
		member.Surname,
		member.Email,
		member.Birthdate,
		member.Source,
		now,
	); err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	member.CreatedAt = now
	return nil
}

func (r *memberRepository) GetAll(ctx context.Context) ([]*entity.Member, error) {
	query := `
		SELECT id, name, surname, email, birthdate, source, created_at
		FROM members
		ORDER BY surname, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*entity.Member
	for rows.Next() {
		var m entity.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Surname, &m.Email, &m.Birthdate, &m.Source, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*entity.Member, error) {
	query := `
		SELECT id, name, surname, email, birthdate, source, created_at
		FROM members
		WHERE email = LOWER($1)
	`

	var m entity.Member
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&m.ID, &m.Name, &m.Surname, &m.Email, &m.Birthdate, &m.Source, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return &m, nil
}

// Matches considers a participant a member when the email is registered, or
// when name, surname and birthdate all line up with an existing entry.
func (r *memberRepository) Matches(ctx context.Context, p *entity.Participant) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM members
			WHERE email = LOWER($1)
			   OR (LOWER(name) = LOWER($2) AND LOWER(surname) = LOWER($3) AND birthdate = $4)
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, p.Email, p.Name, p.Surname, p.Birthdate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to match member: %w", err)
	}
	return exists, nil
}
