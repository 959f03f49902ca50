package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
)

func TestCreateContact(t *testing.T) {
	var stored *domain.Contact
	repo := &fakeContactRepo{create: func(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
		c.ID = "c9"
		stored = c
		return c, nil
	}}
	uc := usecase.NewContactUsecase(repo)

	c, err := uc.CreateContact(context.Background(), usecase.CreateContactInput{Name: " Dad ", Phone: " +1 555-0100 "})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if c.ID != "c9" || stored.Name != "Dad" || stored.Phone != "+1 555-0100" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestCreateContact_InvalidPhone(t *testing.T) {
	repo := &fakeContactRepo{create: func(context.Context, *domain.Contact) (*domain.Contact, error) {
		t.Fatal("store must not be written")
		return nil, nil
	}}
	_, err := usecase.NewContactUsecase(repo).CreateContact(context.Background(), usecase.CreateContactInput{Name: "x", Phone: "call me"})
	if !errors.Is(err, domain.ErrInvalidPhone) {
		t.Fatalf("got %v", err)
	}
}

func TestListContacts_ClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &fakeContactRepo{list: func(_ context.Context, limit int) ([]*domain.Contact, error) {
		gotLimit = limit
		return nil, nil
	}}
	uc := usecase.NewContactUsecase(repo)

	if _, err := uc.ListContacts(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if gotLimit != 20 {
		t.Errorf("default limit = %d", gotLimit)
	}
	if _, err := uc.ListContacts(context.Background(), 5000); err != nil {
		t.Fatal(err)
	}
	if gotLimit != 100 {
		t.Errorf("max limit = %d", gotLimit)
	}
}
