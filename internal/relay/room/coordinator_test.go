// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/relay/identity"
	"github.com/taibuivan/campuslink/internal/relay/room"
	"github.com/taibuivan/campuslink/pkg/slice"
)

var (
	director = &sec.Identity{UserID: "1", UserType: sec.UserTypeDirector, TenantID: "t1"}
	staff    = &sec.Identity{UserID: "7", UserType: sec.UserTypeStaff, TenantID: "t1"}
)

func newCoordinator() (*room.Coordinator, *memoryRepository, *memoryBus) {
	repo := newMemoryRepository()
	bus := newMemoryBus()
	return room.NewCoordinator(repo, bus, 0, discardLogger()), repo, bus
}

func TestCreateGroup(t *testing.T) {
	coordinator, repo, _ := newCoordinator()

	created, err := coordinator.CreateGroup(context.Background(), staff, " Class 3A Parents ", []room.ParticipantInput{
		{UserID: "42", UserType: "guardian"},
		{UserID: "43", UserType: "Guardian"},
		{UserID: "42", UserType: "guardian"},
		{UserID: "7", UserType: "staff"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Class 3A Parents", created.Name)
	assert.Equal(t, "class-3a-parents", created.Slug)
	assert.True(t, created.IsGroup)
	assert.Equal(t, "t1", created.TenantID)
	assert.Equal(t, []string{"7", "42", "43"}, slice.Map(created.Participants, func(p room.Participant) string { return p.UserID }))
	assert.Equal(t, created.CreatedAt.Add(room.DefaultTTL), created.ExpiresAt)

	members, err := coordinator.MembersOf(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "43", "7"}, members)
	assert.Len(t, repo.rooms, 1)
}

/*
TestCreateGroup_PolicyDenied checks that a single forbidden pair rejects the room
and stores nothing.
*/
func TestCreateGroup_PolicyDenied(t *testing.T) {
	coordinator, repo, _ := newCoordinator()

	_, err := coordinator.CreateGroup(context.Background(), director, "Leadership", []room.ParticipantInput{
		{UserID: "7", UserType: "staff"},
		{UserID: "9", UserType: "student"},
	})

	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
	assert.Equal(t, "Communication between Director and Student is not allowed", appError.Message)
	assert.Empty(t, repo.rooms)
}

func TestCreateGroup_Validation(t *testing.T) {
	coordinator, _, _ := newCoordinator()
	ctx := context.Background()

	_, err := coordinator.CreateGroup(ctx, staff, "", []room.ParticipantInput{{UserID: "42", UserType: "guardian"}})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = coordinator.CreateGroup(ctx, staff, "Room", nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = coordinator.CreateGroup(ctx, staff, "Room", []room.ParticipantInput{{UserID: "42", UserType: "parent"}})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

// directoryRoles answers role lookups from a fixed table.
type directoryRoles struct {
	roles  map[string]sec.UserType
	tokens []string
	err    error
}

func (d *directoryRoles) UserType(_ context.Context, token, _, userID string) (sec.UserType, error) {
	d.tokens = append(d.tokens, token)
	if d.err != nil {
		return "", d.err
	}
	userType, ok := d.roles[userID]
	if !ok {
		return "", identity.ErrUserNotFound
	}
	return userType, nil
}

/*
TestCreateGroup_RolesFromDirectory checks that declared participant roles are
replaced by the directory's answer when the creator carries a token.
*/
func TestCreateGroup_RolesFromDirectory(t *testing.T) {
	repo := newMemoryRepository()
	roles := &directoryRoles{roles: map[string]sec.UserType{"9": sec.UserTypeStudent}}
	coordinator := room.NewCoordinator(repo, newMemoryBus(), 0, discardLogger()).WithRoles(roles)
	creator := &sec.Identity{UserID: "1", UserType: sec.UserTypeDirector, TenantID: "t1", Token: "tok"}

	_, err := coordinator.CreateGroup(context.Background(), creator, "Leadership", []room.ParticipantInput{
		{UserID: "9", UserType: "staff"},
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)
	assert.Equal(t, []string{"tok"}, roles.tokens)
	assert.Empty(t, repo.rooms)
}

func TestCreateGroup_DirectoryFailures(t *testing.T) {
	creator := &sec.Identity{UserID: "7", UserType: sec.UserTypeStaff, TenantID: "t1", Token: "tok"}
	input := []room.ParticipantInput{{UserID: "42", UserType: "guardian"}}

	missing := room.NewCoordinator(newMemoryRepository(), newMemoryBus(), 0, discardLogger()).
		WithRoles(&directoryRoles{roles: map[string]sec.UserType{}})
	_, err := missing.CreateGroup(context.Background(), creator, "Room", input)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	down := room.NewCoordinator(newMemoryRepository(), newMemoryBus(), 0, discardLogger()).
		WithRoles(&directoryRoles{err: errors.New("connection refused")})
	_, err = down.CreateGroup(context.Background(), creator, "Room", input)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeDependencyFailure))
}

func TestCreateGroup_NoTokenKeepsDeclaredRoles(t *testing.T) {
	roles := &directoryRoles{roles: map[string]sec.UserType{"42": sec.UserTypeStudent}}
	coordinator := room.NewCoordinator(newMemoryRepository(), newMemoryBus(), 0, discardLogger()).WithRoles(roles)

	created, err := coordinator.CreateGroup(context.Background(), staff, "Room", []room.ParticipantInput{
		{UserID: "42", UserType: "guardian"},
	})

	require.NoError(t, err)
	assert.Equal(t, sec.UserTypeGuardian, created.Participants[1].UserType)
	assert.Empty(t, roles.tokens)
}

func TestGetRoom_TenantScoped(t *testing.T) {
	coordinator, _, _ := newCoordinator()
	ctx := context.Background()

	created, err := coordinator.CreateGroup(ctx, staff, "Room", []room.ParticipantInput{{UserID: "42", UserType: "guardian"}})
	require.NoError(t, err)

	found, err := coordinator.GetRoom(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = coordinator.GetRoom(ctx, "t2", created.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestFanOut publishes once per member channel, and nothing for an empty list.
*/
func TestFanOut(t *testing.T) {
	coordinator, _, bus := newCoordinator()
	ctx := context.Background()

	require.NoError(t, coordinator.FanOut(ctx, []string{"42", "43", "44"}, []byte(`{}`)))
	assert.Equal(t, []string{"user:42", "user:43", "user:44"}, bus.channels())

	coordinator2, _, bus2 := newCoordinator()
	require.NoError(t, coordinator2.FanOut(ctx, nil, []byte(`{}`)))
	assert.Empty(t, bus2.channels())
}

func TestFanOut_ReportsFailureAfterAllAttempts(t *testing.T) {
	coordinator, _, bus := newCoordinator()
	bus.failChannel = "user:43"

	err := coordinator.FanOut(context.Background(), []string{"42", "43", "44"}, []byte(`{}`))

	assert.True(t, apperr.HasCode(err, apperr.CodeDependencyFailure))
	assert.Equal(t, []string{"user:42", "user:44"}, bus.channels())
}

func TestMembership(t *testing.T) {
	coordinator, _, _ := newCoordinator()
	ctx := context.Background()

	require.NoError(t, coordinator.AddMember(ctx, "42", "r1", 0))
	require.NoError(t, coordinator.AddMember(ctx, "43", "r1", 0))
	require.NoError(t, coordinator.RemoveMember(ctx, "42", "r1"))

	members, err := coordinator.MembersOf(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"43"}, members)

	members, err = coordinator.MembersOf(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCreateGroupHandler(t *testing.T) {
	coordinator, _, _ := newCoordinator()
	router := room.NewHandler(coordinator).Routes()

	serve := func(caller *sec.Identity, body string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/create", bytes.NewBufferString(body))
		if caller != nil {
			request = request.WithContext(ctxutil.WithIdentity(request.Context(), caller))
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	t.Run("created", func(t *testing.T) {
		recorder := serve(staff, `{"name":"Trip","participants":[{"userId":"42","userType":"guardian"}]}`)
		require.Equal(t, http.StatusCreated, recorder.Code)

		var body struct {
			Data room.CreateGroupResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
		assert.NotEmpty(t, body.Data.RoomID)
	})

	t.Run("denied", func(t *testing.T) {
		recorder := serve(director, `{"name":"Trip","participants":[{"userId":"9","userType":"student"}]}`)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		recorder := serve(staff, `{"name":`)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		recorder := serve(nil, `{}`)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
