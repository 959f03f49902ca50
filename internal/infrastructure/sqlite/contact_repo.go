package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/google/uuid"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (id, name, phone, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, name, phone, notes, created_at`,
		c.ID, c.Name, c.Phone, nullString(c.Notes), millis(time.Now()),
	)
	return scanContact(row)
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, phone, notes, created_at FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

func (r *ContactRepository) List(ctx context.Context, limit int) ([]*domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone, notes, created_at
		FROM contacts
		ORDER BY name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	var (
		c         domain.Contact
		notes     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	c.Notes = fromNullString(notes)
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &c, nil
}
