// Package contact stores messages sent through the contact form and
// forwards them to the organisers.
package contact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/storage"
	"github.com/isepctf/ctfportal/internal/validation"
)

// ErrInvalidSubmission wraps the field errors of a rejected submission
var ErrInvalidSubmission = errors.New("invalid contact submission")

// Submission is what a visitor fills in
type Submission struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Service handles contact form submissions
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	mailer  Mailer
	logger  *slog.Logger
}

// New creates a contact Service
func New(storage storage.Storage, clock clock.Clock, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		storage: storage,
		clock:   clock,
		mailer:  mailer,
		logger:  logger.With(slog.String("component", "contact")),
	}
}

// Submit validates and stores a message, then forwards it.
// The stored message is the record; a delivery failure is logged only.
func (s *Service) Submit(ctx context.Context, sub Submission) (*model.ContactMessage, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Message = strings.TrimSpace(sub.Message)

	if err := validation.Struct(sub); err != nil {
		return nil, errors.Join(ErrInvalidSubmission, err)
	}

	msg := &model.ContactMessage{
		ID:         uuid.NewString(),
		Name:       sub.Name,
		Email:      sub.Email,
		Message:    sub.Message,
		ReceivedAt: s.clock.Now(),
	}

	if err := s.storage.SaveContactMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("contact mail not delivered",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()))
	}
	return msg, nil
}

// List returns stored messages, oldest first
func (s *Service) List(ctx context.Context) ([]*model.ContactMessage, error) {
	return s.storage.ListContactMessages(ctx)
}
