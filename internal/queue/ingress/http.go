// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingress

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/respond"
)

// Handler exposes task ingress. Service authentication is applied by the
// router that mounts it.
type Handler struct {
	service *Service
}

// NewHandler constructs an ingress [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] mounted under /queue.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/task", handler.enqueue)
	return router
}

// EnqueueResponse is returned by POST /queue/task.
type EnqueueResponse struct {
	TaskID string `json:"taskId"`
}

/*
POST /queue/task.

Description: Appends a task to the stream. Acceptance does not imply processing.

Request (Headers):
  - X-Service-ID, X-Tenant-ID, Authorization (optional bearer)

Request (Body):
  - type: string
  - payload: object
  - priority: low | normal | high (optional)

Response:
  - 202: EnqueueResponse
  - 400: Missing type, payload or unknown type
  - 401: Service not authorized for the tenant
*/
func (handler *Handler) enqueue(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredService(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input EnqueueInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	taskID, err := handler.service.Enqueue(request.Context(), input, caller)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, EnqueueResponse{TaskID: taskID})
}
