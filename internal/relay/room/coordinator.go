// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
	"github.com/taibuivan/campuslink/internal/relay/identity"
	"github.com/taibuivan/campuslink/internal/relay/policy"
	"github.com/taibuivan/campuslink/pkg/slice"
	"github.com/taibuivan/campuslink/pkg/slug"
	"github.com/taibuivan/campuslink/pkg/uuid"
)

// Publisher is the publishing half of a [Bus].
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RoleResolver looks up a user's role in a tenant on behalf of a caller's token.
type RoleResolver interface {
	UserType(ctx context.Context, token, tenantID, userID string) (sec.UserType, error)
}

// fanOutLimit caps concurrent publishes of one group send.
const fanOutLimit = 16

// # Coordinator

// Coordinator owns group room state and cross-instance publishing.
type Coordinator struct {
	repo      Repository
	publisher Publisher
	roles     RoleResolver
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewCoordinator constructs a [Coordinator]. A non-positive ttl selects [DefaultTTL].
func NewCoordinator(repo Repository, publisher Publisher, ttl time.Duration, logger *slog.Logger) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		repo:      repo,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "room")),
	}
}

// WithRoles makes group creation take participant roles from resolver
// whenever the creator carries a bearer token.
func (coordinator *Coordinator) WithRoles(resolver RoleResolver) *Coordinator {
	coordinator.roles = resolver
	return coordinator
}

// # Fan-out

/*
Publish forwards payload to every instance subscribed to roomKey.

It is fire-and-forget: there is no delivery acknowledgment, and durability
comes from the message store write that precedes it.
*/
func (coordinator *Coordinator) Publish(context context.Context, roomKey string, payload []byte) error {
	if err := coordinator.publisher.Publish(context, roomKey, payload); err != nil {
		return apperr.DependencyFailure("Coordination store", err)
	}
	return nil
}

/*
FanOut publishes payload once on each user's direct channel, concurrently.

Returns the first publish error after every publish has been attempted.
An empty user list publishes nothing.
*/
func (coordinator *Coordinator) FanOut(context context.Context, userIDs []string, payload []byte) error {
	// One member's failure must not cancel the others' publishes.
	var group errgroup.Group
	group.SetLimit(fanOutLimit)

	for _, userID := range userIDs {
		group.Go(func() error {
			return coordinator.Publish(context, UserChannel(userID), payload)
		})
	}

	return group.Wait()
}

// # Membership

// AddMember adds userID to a group room for ttl (zero selects the default).
// Policy is not re-evaluated here; it is enforced when the room is created.
func (coordinator *Coordinator) AddMember(context context.Context, userID, roomID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = coordinator.ttl
	}
	if err := coordinator.repo.AddMember(context, roomID, userID, ttl); err != nil {
		return apperr.DependencyFailure("Coordination store", err)
	}
	return nil
}

// RemoveMember removes userID from a group room.
func (coordinator *Coordinator) RemoveMember(context context.Context, userID, roomID string) error {
	if err := coordinator.repo.RemoveMember(context, roomID, userID); err != nil {
		return apperr.DependencyFailure("Coordination store", err)
	}
	return nil
}

// MembersOf returns the current members of a group room.
func (coordinator *Coordinator) MembersOf(context context.Context, roomID string) ([]string, error) {
	members, err := coordinator.repo.Members(context, roomID)
	if err != nil {
		return nil, apperr.DependencyFailure("Coordination store", err)
	}
	return members, nil
}

// # Group Rooms

/*
CreateGroup creates a group room owned by creator.

Every (creator, participant) pair must satisfy the communication policy; a
single denial rejects the whole room and nothing is stored. When a
[RoleResolver] is configured and the creator carries a token, participant
roles come from the resolver and the declared ones are ignored.

Parameters:
  - context: context.Context
  - creator: *sec.Identity
  - name: string
  - participants: []ParticipantInput (the creator may be omitted)

Returns:
  - *Room: The stored room, creator first in Participants
  - error: ValidationError, Forbidden with the policy reason, or store and
    identity gateway failures
*/
func (coordinator *Coordinator) CreateGroup(context context.Context, creator *sec.Identity, name string, participants []ParticipantInput) (*Room, error) {
	name = strings.TrimSpace(name)

	validator := &validate.Validator{}
	validator.Required(FieldName, name).
		MaxLen(FieldName, name, MaxNameLength).
		Items(FieldParticipants, len(participants), 1, MaxParticipants)

	for _, participant := range participants {
		validator.Required(FieldParticipants+".userId", participant.UserID).
			UserType(FieldParticipants+".userType", participant.UserType)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	createdAt := coordinator.now().UTC()
	members := []Participant{{UserID: creator.UserID, UserType: creator.UserType, JoinedAt: createdAt}}
	seen := map[string]bool{creator.UserID: true}

	for _, input := range participants {
		if seen[input.UserID] {
			continue
		}
		seen[input.UserID] = true

		userType, _ := sec.ParseUserType(input.UserType)
		members = append(members, Participant{UserID: input.UserID, UserType: userType, JoinedAt: createdAt})
	}

	if err := coordinator.resolveRoles(context, creator, members[1:]); err != nil {
		return nil, err
	}

	others := slice.Map(members[1:], func(p Participant) sec.UserType { return p.UserType })
	if decision := policy.EvaluateAll(creator.UserType, others); !decision.Allowed {
		coordinator.logger.InfoContext(context, "room_create_denied",
			slog.String("creator_id", creator.UserID),
			slog.String("reason", decision.Reason),
		)
		return nil, apperr.Forbidden(decision.Reason)
	}

	room := &Room{
		ID:           uuid.New(),
		TenantID:     creator.TenantID,
		Name:         name,
		Slug:         slug.From(name),
		CreatedBy:    creator.UserID,
		Participants: members,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(coordinator.ttl),
		IsGroup:      true,
	}

	if err := coordinator.repo.Save(context, room, coordinator.ttl); err != nil {
		return nil, apperr.DependencyFailure("Coordination store", err)
	}

	coordinator.logger.Info("room_created",
		slog.String("room_id", room.ID),
		slog.String("tenant_id", room.TenantID),
		slog.Int("participants", len(room.Participants)),
	)

	return room, nil
}

// resolveRoles overwrites the declared role of each participant with the one
// the identity gateway reports. Lookups run concurrently.
func (coordinator *Coordinator) resolveRoles(context context.Context, creator *sec.Identity, participants []Participant) error {
	if coordinator.roles == nil || creator.Token == "" {
		return nil
	}

	group, groupCtx := errgroup.WithContext(context)
	group.SetLimit(fanOutLimit)

	for i := range participants {
		participant := &participants[i]
		group.Go(func() error {
			userType, err := coordinator.roles.UserType(groupCtx, creator.Token, creator.TenantID, participant.UserID)
			if err != nil {
				if errors.Is(err, identity.ErrUserNotFound) {
					return apperr.ValidationError("Participant not found in this tenant", apperr.FieldError{
						Field:   FieldParticipants + ".userId",
						Message: participant.UserID,
					})
				}
				return apperr.DependencyFailure("Identity gateway", err)
			}
			participant.UserType = userType
			return nil
		})
	}

	return group.Wait()
}

// GetRoom returns a room's metadata if it belongs to tenantID, otherwise NotFound.
func (coordinator *Coordinator) GetRoom(context context.Context, tenantID, roomID string) (*Room, error) {
	room, err := coordinator.repo.Find(context, roomID)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.DependencyFailure("Coordination store", err)
	}
	if room.TenantID != tenantID {
		return nil, apperr.NotFound("Room")
	}
	return room, nil
}
