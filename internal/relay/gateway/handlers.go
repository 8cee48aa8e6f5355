// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/relay/identity"
	"github.com/taibuivan/campuslink/internal/relay/message"
	"github.com/taibuivan/campuslink/internal/relay/policy"
	"github.com/taibuivan/campuslink/internal/relay/room"
	"github.com/taibuivan/campuslink/pkg/slice"
)

// # Direct

// directTypes are the message types a direct frame may carry.
var directTypes = []message.Type{message.TypeDirect, message.TypeAnnouncement, message.TypeDailyNote, message.TypeMedia}

/*
handleDirect relays a one-to-one message.

The recipient's role is resolved with the connection's own token inside the
connection's tenant, so a recipient of another tenant is simply not found.
*/
func (gateway *Gateway) handleDirect(ctx context.Context, c *conn, frame inboundFrame) {
	recipientID := strings.TrimSpace(frame.RecipientID)
	if recipientID == "" {
		c.fail(apperr.ValidationError("recipientId is required",
			apperr.FieldError{Field: message.FieldRecipientIDs, Message: "Required"}))
		return
	}

	messageType := message.TypeDirect
	if frame.MessageType != "" {
		messageType = message.Type(frame.MessageType)
	}
	if !slices.Contains(directTypes, messageType) {
		c.fail(apperr.ValidationError("Unsupported messageType for direct frame",
			apperr.FieldError{Field: message.FieldMessageType, Message: "Must be one of: direct, announcement, daily-note, media"}))
		return
	}

	draft := message.Draft{
		MessageType:  messageType,
		RecipientIDs: []string{recipientID},
		Subject:      frame.Subject,
		Content:      frame.Content,
		MediaURLs:    frame.MediaURLs,
	}
	if err := message.ValidateDraft(draft); err != nil {
		c.fail(err)
		return
	}

	recipientType, err := gateway.identity.UserType(ctx, c.identity.Token, c.identity.TenantID, recipientID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			c.sendError(msgRecipientMissing, apperr.CodeNotFound)
			return
		}
		c.logger.Warn("ws_recipient_lookup_failed", slog.String("recipient_id", recipientID), slog.Any("error", err))
		c.sendError(msgRecipientUnknown, apperr.CodeDependencyFailure)
		return
	}

	if decision := policy.Evaluate(c.identity.UserType, recipientType); !decision.Allowed {
		c.logger.Info("ws_direct_denied",
			slog.String("recipient_id", recipientID),
			slog.String("reason", decision.Reason),
		)
		c.sendError(decision.Reason, apperr.CodeForbidden)
		return
	}

	stored, err := gateway.messages.Record(ctx, c.identity, draft)
	if err != nil {
		c.fail(err)
		return
	}

	gateway.deliver(ctx, c, stored, func(payload []byte) error {
		return gateway.rooms.Publish(ctx, room.UserChannel(recipientID), payload)
	})

	_ = c.send(ackFrame{Type: FrameMessageSent, MessageID: stored.ID})
}

// # Group

/*
handleGroup relays a message to every other member of a group room.

The room must belong to the caller's tenant and contain the caller. Members
are not policy-checked again; the policy is applied when the room is created.
*/
func (gateway *Gateway) handleGroup(ctx context.Context, c *conn, frame inboundFrame) {
	roomID := strings.TrimSpace(frame.RoomID)
	if roomID == "" {
		c.fail(apperr.ValidationError("roomId is required",
			apperr.FieldError{Field: room.FieldRoomID, Message: "Required"}))
		return
	}

	if _, err := gateway.rooms.GetRoom(ctx, c.identity.TenantID, roomID); err != nil {
		c.fail(err)
		return
	}

	members, err := gateway.rooms.MembersOf(ctx, roomID)
	if err != nil {
		c.fail(err)
		return
	}
	if !slices.Contains(members, c.identity.UserID) {
		c.sendError(msgNotMember, apperr.CodeForbidden)
		return
	}

	recipients := slice.Without(members, c.identity.UserID)
	if len(recipients) == 0 {
		c.sendError(msgEmptyRoom, apperr.CodeValidation)
		return
	}

	stored, err := gateway.messages.Record(ctx, c.identity, message.Draft{
		MessageType:  message.TypeGroup,
		RecipientIDs: recipients,
		Subject:      frame.Subject,
		Content:      frame.Content,
		MediaURLs:    frame.MediaURLs,
		RoomID:       roomID,
	})
	if err != nil {
		c.fail(err)
		return
	}

	gateway.deliver(ctx, c, stored, func(payload []byte) error {
		return gateway.rooms.FanOut(ctx, recipients, payload)
	})

	_ = c.send(ackFrame{Type: FrameMessageSent, MessageID: stored.ID, Recipients: recipients})
}

// # Read Receipts

func (gateway *Gateway) handleRead(ctx context.Context, c *conn, frame inboundFrame) {
	updated, err := gateway.messages.MarkRead(ctx, c.identity, strings.TrimSpace(frame.MessageID))
	if err != nil {
		c.fail(err)
		return
	}

	_ = c.send(ackFrame{Type: FrameMessageRead, MessageID: updated.ID})
}

// deliver encodes a stored message and hands it to publish. The message is
// already durable, so a publish failure is logged and the sender still gets
// its acknowledgment; recipients recover it from history.
func (gateway *Gateway) deliver(ctx context.Context, c *conn, stored *message.Message, publish func([]byte) error) {
	payload, err := encodeDelivery(stored)
	if err != nil {
		c.logger.Error("ws_delivery_encode_failed", slog.String("message_id", stored.ID), slog.Any("error", err))
		return
	}

	if err := publish(payload); err != nil {
		c.logger.WarnContext(ctx, "ws_publish_failed", slog.String("message_id", stored.ID), slog.Any("error", err))
	}
}
