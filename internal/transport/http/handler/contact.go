package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

type contactUsecaser interface {
	CreateContact(ctx context.Context, input usecase.CreateContactInput) (*domain.Contact, error)
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
	ListContacts(ctx context.Context, limit int) ([]*domain.Contact, error)
}

type ContactHandler struct {
	uc     contactUsecaser
	logger *slog.Logger
}

func NewContactHandler(uc contactUsecaser, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{uc: uc, logger: logger.With("component", "contact_handler")}
}

type createContactRequest struct {
	Name  string  `json:"name"  binding:"required,max=256"`
	Phone string  `json:"phone" binding:"required,max=32"`
	Notes *string `json:"notes" binding:"omitempty,max=1024"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toContactResponse(c *domain.Contact) contactResponse {
	return contactResponse{ID: c.ID, Name: c.Name, Phone: c.Phone, Notes: c.Notes, CreatedAt: c.CreatedAt}
}

// POST /contacts
func (h *ContactHandler) Create(ctx *gin.Context) {
	var req createContactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c, err := h.uc.CreateContact(ctx.Request.Context(), usecase.CreateContactInput{
		Name:  req.Name,
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		respondError(ctx, h.logger, "create contact", err)
		return
	}
	ctx.JSON(http.StatusCreated, toContactResponse(c))
}

// GET /contacts
func (h *ContactHandler) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	contacts, err := h.uc.ListContacts(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, h.logger, "list contacts", err)
		return
	}

	items := make([]contactResponse, len(contacts))
	for i, c := range contacts {
		items[i] = toContactResponse(c)
	}
	ctx.JSON(http.StatusOK, gin.H{"contacts": items})
}

// GET /contacts/:id
func (h *ContactHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	c, err := h.uc.GetContact(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.logger, "get contact", err, "contact_id", id)
		return
	}
	ctx.JSON(http.StatusOK, toContactResponse(c))
}
