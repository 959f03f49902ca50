package repository

import (
	"context"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
)

type ContactRepository interface {
	Create(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	List(ctx context.Context, limit int) ([]*domain.Contact, error)
}
