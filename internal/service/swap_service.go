// Package service contains the application's business logic, sitting between
// the HTTP handlers and the repositories.
package service

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
)

// SwapService provides swap-request lifecycle business logic.
type SwapService struct {
	swapRepo repository.SwapRepository
	userRepo repository.UserRepository
	notifier *notifications.Notifier
}

// NewSwapService returns a new SwapService. notifier may be nil.
func NewSwapService(swapRepo repository.SwapRepository, userRepo repository.UserRepository, notifier *notifications.Notifier) *SwapService {
	return &SwapService{
		swapRepo: swapRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// SendSwapInput is the payload for creating a swap request.
type SendSwapInput struct {
	RecipientID    uint
	RequesterSkill string
	RecipientSkill string
	Message        string
}

// Send creates a pending swap request from requesterID to the recipient.
func (s *SwapService) Send(ctx context.Context, requesterID uint, in SendSwapInput) (*models.SwapRequest, error) {
	if requesterID == in.RecipientID {
		return nil, models.NewValidationError("Cannot send a swap request to yourself")
	}

	in.RequesterSkill = strings.TrimSpace(in.RequesterSkill)
	in.RecipientSkill = strings.TrimSpace(in.RecipientSkill)
	if in.RequesterSkill == "" || in.RecipientSkill == "" {
		return nil, models.NewValidationError("Both offered and requested skills are required")
	}

	recipient, err := s.userRepo.GetByID(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if !recipient.IsActive {
		return nil, models.NewNotFoundError("User", in.RecipientID)
	}

	pending, err := s.swapRepo.HasPendingBetween(ctx, requesterID, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("You already have a pending swap request to this user")
	}

	req := &models.SwapRequest{
		RequesterID:    requesterID,
		RecipientID:    in.RecipientID,
		RequesterSkill: in.RequesterSkill,
		RecipientSkill: in.RecipientSkill,
		Message:        strings.TrimSpace(in.Message),
		Status:         models.SwapStatusPending,
	}
	if err := s.swapRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	created, err := s.swapRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, in.RecipientID, requesterID, created.ID, "swap.received", models.SwapStatusPending)
	return created, nil
}

// GetSent returns swap requests created by the user, newest first.
func (s *SwapService) GetSent(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.swapRepo.ListByRequester(ctx, userID)
}

// GetReceived returns swap requests addressed to the user, newest first.
func (s *SwapService) GetReceived(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	return s.swapRepo.ListByRecipient(ctx, userID)
}

// Accept lets the recipient agree to a pending swap request. notes are
// optional remarks stored on the record.
func (s *SwapService) Accept(ctx context.Context, userID, swapID uint, notes string) (*models.SwapRequest, error) {
	return s.transition(ctx, userID, swapID, models.SwapActionAccept, strings.TrimSpace(notes))
}

// Reject lets the recipient decline a pending swap request, optionally
// leaving notes explaining why.
func (s *SwapService) Reject(ctx context.Context, userID, swapID uint, notes string) (*models.SwapRequest, error) {
	return s.transition(ctx, userID, swapID, models.SwapActionReject, strings.TrimSpace(notes))
}

// Cancel lets the requester withdraw a pending swap request.
func (s *SwapService) Cancel(ctx context.Context, userID, swapID uint) (*models.SwapRequest, error) {
	return s.transition(ctx, userID, swapID, models.SwapActionCancel, "")
}

// Complete lets either party mark an accepted swap as done.
func (s *SwapService) Complete(ctx context.Context, userID, swapID uint) (*models.SwapRequest, error) {
	return s.transition(ctx, userID, swapID, models.SwapActionComplete, "")
}

func (s *SwapService) transition(ctx context.Context, userID, swapID uint, action models.SwapAction, notes string) (*models.SwapRequest, error) {
	req, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		observability.SwapTransitions.WithLabelValues(string(action), "error").Inc()
		return nil, err
	}

	if err := checkActor(req, userID, action); err != nil {
		observability.SwapTransitions.WithLabelValues(string(action), "forbidden").Inc()
		return nil, err
	}

	next, ok := models.NextStatus(req.Status, action)
	if !ok {
		observability.SwapTransitions.WithLabelValues(string(action), "conflict").Inc()
		return nil, models.NewConflictError("Cannot " + string(action) + " a " + string(req.Status) + " swap request")
	}

	now := time.Now()
	updates := map[string]interface{}{}
	switch next {
	case models.SwapStatusAccepted:
		updates["accepted_at"] = now
	case models.SwapStatusCompleted:
		updates["completed_at"] = now
	case models.SwapStatusCancelled:
		updates["cancelled_at"] = now
	}
	if notes != "" {
		updates["notes"] = notes
	}

	if err := s.swapRepo.Transition(ctx, swapID, req.Status, next, updates); err != nil {
		observability.SwapTransitions.WithLabelValues(string(action), "conflict").Inc()
		return nil, err
	}
	observability.SwapTransitions.WithLabelValues(string(action), "ok").Inc()

	updated, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, otherParty(updated, userID), userID, swapID, "swap."+string(next), next)
	return updated, nil
}

// checkActor enforces who may apply each action: accept and reject belong to
// the recipient, cancel to the requester, complete to either party.
func checkActor(req *models.SwapRequest, userID uint, action models.SwapAction) error {
	switch action {
	case models.SwapActionAccept, models.SwapActionReject:
		if req.RecipientID != userID {
			return models.NewForbiddenError("Only the recipient can respond to a swap request")
		}
	case models.SwapActionCancel:
		if req.RequesterID != userID {
			return models.NewForbiddenError("Only the requester can cancel a swap request")
		}
	case models.SwapActionComplete:
		if req.RequesterID != userID && req.RecipientID != userID {
			return models.NewForbiddenError("Only a participant can complete a swap request")
		}
	}
	return nil
}

func otherParty(req *models.SwapRequest, userID uint) uint {
	if req.RequesterID == userID {
		return req.RecipientID
	}
	return req.RequesterID
}

// publish is best effort: a notification failure never fails the operation.
func (s *SwapService) publish(ctx context.Context, to, actor, swapID uint, eventType string, status models.SwapStatus) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.PublishSwapEvent(ctx, to, notifications.SwapEvent{
		Type:    eventType,
		SwapID:  swapID,
		ActorID: actor,
		Status:  string(status),
	})
}
