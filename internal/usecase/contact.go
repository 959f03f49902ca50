package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
)

type ContactUsecase struct {
	contacts repository.ContactRepository
}

func NewContactUsecase(contacts repository.ContactRepository) *ContactUsecase {
	return &ContactUsecase{contacts: contacts}
}

type CreateContactInput struct {
	Name  string
	Phone string
	Notes *string
}

func (u *ContactUsecase) CreateContact(ctx context.Context, input CreateContactInput) (*domain.Contact, error) {
	phone, err := domain.NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	c, err := u.contacts.Create(ctx, &domain.Contact{
		Name:  strings.TrimSpace(input.Name),
		Phone: phone,
		Notes: input.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

func (u *ContactUsecase) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	c, err := u.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (u *ContactUsecase) ListContacts(ctx context.Context, limit int) ([]*domain.Contact, error) {
	contacts, err := u.contacts.List(ctx, pageSize(limit))
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}
