// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/respond"
)

// # Handler Implementation

// Handler exposes group room endpoints. Session authentication is applied by
// the router that mounts it.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a room [Handler].
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// Routes returns a [chi.Router] mounted under /group.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/create", handler.createGroup)
	router.Get("/{roomID}", handler.getGroup)
	return router
}

// CreateGroupRequest is the body of POST /group/create.
type CreateGroupRequest struct {
	Name         string             `json:"name"`
	Participants []ParticipantInput `json:"participants"`
}

// CreateGroupResponse is returned by POST /group/create.
type CreateGroupResponse struct {
	RoomID string `json:"roomId"`
}

/*
POST /group/create.

Description: Creates a group room with the caller as first member.

Request (Body):
  - name: string
  - participants: [{userId, userType}]

Response:
  - 201: CreateGroupResponse
  - 400: Invalid name or participants
  - 401: Invalid session
  - 403: A participant pair violates the communication policy
*/
func (handler *Handler) createGroup(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateGroupRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	room, err := handler.coordinator.CreateGroup(request.Context(), caller, input.Name, input.Participants)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, CreateGroupResponse{RoomID: room.ID})
}

/*
GET /group/{roomID}.

Description: Returns the metadata of a group room in the caller's tenant.

Response:
  - 200: Room
  - 404: Unknown, expired or foreign-tenant room
*/
func (handler *Handler) getGroup(writer http.ResponseWriter, request *http.Request) {
	caller, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	room, err := handler.coordinator.GetRoom(request.Context(), caller.TenantID, requestutil.Param(request, "roomID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, room)
}
