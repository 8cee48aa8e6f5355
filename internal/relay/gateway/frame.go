// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"encoding/json"
	"strings"

	"github.com/taibuivan/campuslink/internal/relay/message"
)

// # Frame Types

// Inbound frame types.
const (
	FrameDirect = "direct"
	FrameGroup  = "group"
	FrameRead   = "read"
	FramePing   = "ping"
)

// Outbound frame types.
const (
	FrameMessageSent = "message_sent"
	FrameMessageRead = "message_read"
	FrameNewMessage  = "new_message"
	FramePong        = "pong"
	FrameError       = "error"
)

// Client-facing error texts.
const (
	msgInvalidFormat    = "Invalid message format"
	msgUnknownType      = "Unknown message type: "
	msgFrameTooLarge    = "Frame too large"
	msgRateLimited      = "Rate limit exceeded"
	msgRecipientMissing = "Recipient not found"
	msgRecipientUnknown = "Unable to verify recipient"
	msgNotMember        = "You are not a member of this room"
	msgEmptyRoom        = "Room has no other members"
	msgInternal         = "Internal error"
	msgUnavailable      = "Service unavailable"
)

// inboundFrame is the union of every client frame; Type selects the fields that apply.
type inboundFrame struct {
	Type        string   `json:"type"`
	RecipientID string   `json:"recipientId,omitempty"`
	RoomID      string   `json:"roomId,omitempty"`
	MessageID   string   `json:"messageId,omitempty"`
	MessageType string   `json:"messageType,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Content     string   `json:"content,omitempty"`
	MediaURLs   []string `json:"mediaUrls,omitempty"`
}

// parseFrame decodes one client frame. A frame without a type is malformed.
func parseFrame(raw []byte) (inboundFrame, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return inboundFrame{}, false
	}
	frame.Type = strings.TrimSpace(frame.Type)
	return frame, frame.Type != ""
}

// ackFrame acknowledges a frame to its sender.
type ackFrame struct {
	Type       string   `json:"type"`
	MessageID  string   `json:"messageId,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

// errorFrame reports a rejected frame. The connection stays open.
type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// deliveryFrame is what a recipient's connection receives.
type deliveryFrame struct {
	Type    string           `json:"type"`
	Message *message.Message `json:"message"`
}

// encodeDelivery serialises a stored message once for every recipient channel.
func encodeDelivery(stored *message.Message) ([]byte, error) {
	return json.Marshal(deliveryFrame{Type: FrameNewMessage, Message: stored})
}
