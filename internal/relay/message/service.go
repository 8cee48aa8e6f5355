// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
	"github.com/taibuivan/campuslink/pkg/pagination"
	"github.com/taibuivan/campuslink/pkg/pointer"
	"github.com/taibuivan/campuslink/pkg/uuid"
)

// # Service Layer

// Service creates messages and serves history and read receipts.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewService constructs a message [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		logger: logger.With(slog.String("component", "message")),
	}
}

// Draft is the caller-controlled part of a new message.
type Draft struct {
	MessageType  Type
	RecipientIDs []string
	Subject      string
	Content      string
	MediaURLs    []string
	RoomID       string
}

/*
Record validates a draft, stamps it with an id and send time on behalf of
sender, and persists it with status sent.

Parameters:
  - context: context.Context
  - sender: *sec.Identity (the bound connection identity)
  - draft: Draft

Returns:
  - *Message: The stored message
  - error: Validation or store failures
*/
func (service *Service) Record(context context.Context, sender *sec.Identity, draft Draft) (*Message, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	message := &Message{
		ID:           uuid.New(),
		SenderID:     sender.UserID,
		SenderType:   sender.UserType,
		RecipientIDs: draft.RecipientIDs,
		TenantID:     sender.TenantID,
		MessageType:  draft.MessageType,
		Subject:      pointer.NonZero(draft.Subject),
		Content:      draft.Content,
		MediaURLs:    draft.MediaURLs,
		Status:       StatusSent,
		RoomID:       draft.RoomID,
		SentAt:       service.now().UTC(),
	}

	if err := service.repo.Create(context, message); err != nil {
		return nil, err
	}

	service.logger.Info("message_recorded",
		slog.String("message_id", message.ID),
		slog.String("tenant_id", message.TenantID),
		slog.String("message_type", string(message.MessageType)),
		slog.Int("recipients", len(message.RecipientIDs)),
	)

	return message, nil
}

// ValidateDraft checks a draft before anything is persisted.
func ValidateDraft(draft Draft) error {
	validator := &validate.Validator{}
	validator.Required(FieldContent, draft.Content).
		MaxLen(FieldContent, draft.Content, MaxContentLength).
		MaxLen(FieldSubject, draft.Subject, MaxSubjectLength).
		Items(FieldRecipientIDs, len(draft.RecipientIDs), 1, MaxRecipients).
		Items(FieldMediaURLs, len(draft.MediaURLs), 0, MaxMediaURLs).
		Custom(FieldMessageType, !draft.MessageType.Valid(), "Unknown message type")

	return validator.Err()
}

/*
History returns the caller's messages, newest first.

Parameters:
  - context: context.Context
  - caller: *sec.Identity
  - types: []Type (empty for all)
  - window: pagination.Window

Returns:
  - []*Message: Never nil
  - error: Store failures
*/
func (service *Service) History(context context.Context, caller *sec.Identity, types []Type, window pagination.Window) ([]*Message, error) {
	return service.repo.History(context, Filter{
		TenantID: caller.TenantID,
		UserID:   caller.UserID,
		Types:    types,
		Limit:    window.Limit,
		Before:   window.Before,
	})
}

/*
MarkRead records a read receipt from caller.

Returns:
  - *Message: The updated message
  - error: ValidationError for a malformed id, NotFound when the caller is not a recipient
*/
func (service *Service) MarkRead(context context.Context, caller *sec.Identity, messageID string) (*Message, error) {
	if !uuid.Valid(messageID) {
		return nil, apperr.ValidationError("Invalid message id", apperr.FieldError{Field: FieldMessageID, Message: "Must be a UUID"})
	}

	message, err := service.repo.MarkRead(context, caller.TenantID, messageID, caller.UserID, service.now().UTC())
	if err != nil {
		return nil, err
	}

	service.logger.Info("message_read",
		slog.String("message_id", messageID),
		slog.String("reader_id", caller.UserID),
	)

	return message, nil
}
