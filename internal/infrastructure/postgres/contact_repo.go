package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, name, phone, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, phone, notes, created_at`,
		c.ID, c.Name, c.Phone, c.Notes,
	)
	return scanContact(row)
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, phone, notes, created_at FROM contacts WHERE id = $1`, id)
	return scanContact(row)
}

func (r *ContactRepository) List(ctx context.Context, limit int) ([]*domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, phone, notes, created_at
		FROM contacts
		ORDER BY name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Notes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return &c, nil
}
