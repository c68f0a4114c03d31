package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

// MessageService handles direct messages between users.
type MessageService interface {
	Send(ctx context.Context, ac domain.AuthContext, params domain.SendMessageParams) (*domain.Message, error)
	List(ctx context.Context, ac domain.AuthContext) ([]domain.Message, error)
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Message, error)
	// Delete hides a message the caller sent.
	Delete(ctx context.Context, ac domain.AuthContext, id uuid.UUID) error
}

type messageService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(store repository.Store, logger *slog.Logger) MessageService {
	return &messageService{store: store, logger: logger}
}

func (s *messageService) Send(ctx context.Context, ac domain.AuthContext, params domain.SendMessageParams) (*domain.Message, error) {
	const op = "message.send"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	params.Body = strings.TrimSpace(params.Body)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	if params.RecipientID == ac.UserID {
		return nil, domain.Invalid(op, "You cannot message yourself")
	}
	if _, err := s.store.GetUserByID(ctx, params.RecipientID); err != nil {
		return nil, lookupError(err, op, "user", params.RecipientID)
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    ac.UserID,
		RecipientID: params.RecipientID,
		Body:        params.Body,
		CreatedAt:   timeNow(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, domain.Internal(err, op, "failed to send message")
	}
	s.logger.Debug("message sent", "message_id", msg.ID)
	return msg, nil
}

func (s *messageService) List(ctx context.Context, ac domain.AuthContext) ([]domain.Message, error) {
	const op = "message.list"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	msgs, err := s.store.ListMessagesForUser(ctx, ac.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list messages")
	}
	return msgs, nil
}

func (s *messageService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Message, error) {
	const op = "message.get"

	msg, err := s.store.GetMessageByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "message", id)
	}
	if msg.IsDeleted() && !ac.IsAdmin() {
		return nil, domain.NotFound(op, "message", id.String())
	}
	res := msg.Resource()
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) Delete(ctx context.Context, ac domain.AuthContext, id uuid.UUID) error {
	const op = "message.delete"

	if ac.IsAnonymous() {
		return domain.Unauthorized(op, "Authentication required")
	}
	msg, err := s.store.GetMessageByID(ctx, id)
	if err != nil {
		return lookupError(err, op, "message", id)
	}
	if msg.SenderID != ac.UserID {
		return domain.NotFound(op, "message", id.String())
	}
	if err := s.store.DeleteMessage(ctx, id, timeNow()); err != nil {
		return domain.Internal(err, op, "failed to delete message")
	}
	return nil
}
