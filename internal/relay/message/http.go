// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/respond"
	"github.com/taibuivan/campuslink/pkg/pagination"
	"github.com/taibuivan/campuslink/pkg/query"
	"github.com/taibuivan/campuslink/pkg/slice"
)

// # Handler Implementation

// Handler exposes message history over HTTP.
//
// Session authentication is applied by the router that mounts it.
type Handler struct {
	service *Service
}

// NewHandler constructs a message [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] mounted under /messages.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/history", handler.history)
	router.Post("/{messageID}/read", handler.markRead)
	return router
}

// HistoryResponse is the body of GET /messages/history.
type HistoryResponse struct {
	Messages []*Message `json:"messages"`
	Count    int        `json:"count"`
}

/*
GET /messages/history.

Description: Returns the caller's sent and received messages, newest first.

Request:
  - type: string (repeatable or comma-separated message types)
  - limit: int (default 50, max 200)
  - before: RFC3339 timestamp (exclusive upper bound on sentAt)

Response:
  - 200: HistoryResponse
  - 400: Unknown message type
  - 401: Invalid session
*/
func (handler *Handler) history(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	types := slice.Map(query.Values(request.URL.Query()[FieldType]), func(raw string) Type { return Type(raw) })
	for _, t := range types {
		if !t.Valid() {
			respond.Error(writer, request, apperr.ValidationError("Unknown message type",
				apperr.FieldError{Field: FieldType, Message: "Unknown message type: " + string(t)}))
			return
		}
	}

	messages, err := handler.service.History(request.Context(), caller, slice.Unique(types), pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, HistoryResponse{Messages: messages, Count: len(messages)})
}

/*
POST /messages/{messageID}/read.

Description: Marks a received message as read by the caller.

Response:
  - 200: Message
  - 404: Not a recipient, or unknown message
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.service.MarkRead(request.Context(), caller, requestutil.Param(request, "messageID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, message)
}
