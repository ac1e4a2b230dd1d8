package repository

import (
	"context"
	"testing"
	"time"

	"skillswap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSwap(t *testing.T, repo SwapRepository, requester, recipient uint) *models.SwapRequest {
	t.Helper()
	req := &models.SwapRequest{
		RequesterID:    requester,
		RecipientID:    recipient,
		RequesterSkill: "Go",
		RecipientSkill: "Piano",
		Status:         models.SwapStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestSwapGetByIDPreloadsParties(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	require.NoError(t, users.ReplaceSkills(ctx, b.ID, []models.Skill{
		{Name: "Piano", Kind: models.SkillOffered},
	}))

	req := createSwap(t, swaps, a.ID, b.ID)

	got, err := swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Requester.Name)
	assert.Equal(t, "B", got.Recipient.Name)
	assert.Equal(t, []string{"Piano"}, got.Recipient.SkillsOffered())
}

func TestSwapGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)

	_, err := swaps.GetByID(context.Background(), 42)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestHasPendingBetweenIsDirectional(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	createSwap(t, swaps, a.ID, b.ID)

	pending, err := swaps.HasPendingBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	// The reverse direction is a different request.
	pending, err = swaps.HasPendingBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestHasPendingBetweenIgnoresResolved(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	req := createSwap(t, swaps, a.ID, b.ID)

	require.NoError(t, swaps.Transition(ctx, req.ID, models.SwapStatusPending, models.SwapStatusRejected, nil))

	pending, err := swaps.HasPendingBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestHasCompletedBetweenEitherDirection(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	req := createSwap(t, swaps, a.ID, b.ID)

	completed, err := swaps.HasCompletedBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	require.NoError(t, swaps.Transition(ctx, req.ID, models.SwapStatusPending, models.SwapStatusAccepted, nil))
	require.NoError(t, swaps.Transition(ctx, req.ID, models.SwapStatusAccepted, models.SwapStatusCompleted, nil))

	// Either participant counts, regardless of who sent the request.
	completed, err = swaps.HasCompletedBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestTransitionAppliesUpdates(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	req := createSwap(t, swaps, a.ID, b.ID)

	now := time.Now()
	err := swaps.Transition(ctx, req.ID, models.SwapStatusPending, models.SwapStatusAccepted,
		map[string]interface{}{"accepted_at": now})
	require.NoError(t, err)

	got, err := swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAccepted, got.Status)
	require.NotNil(t, got.AcceptedAt)
	assert.WithinDuration(t, now, *got.AcceptedAt, time.Second)
}

func TestTransitionGuardRejectsStaleStatus(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	req := createSwap(t, swaps, a.ID, b.ID)

	require.NoError(t, swaps.Transition(ctx, req.ID, models.SwapStatusPending, models.SwapStatusAccepted, nil))

	// A second actor racing on the same pending request loses.
	err := swaps.Transition(ctx, req.ID, models.SwapStatusPending, models.SwapStatusRejected, nil)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	got, err := swaps.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusAccepted, got.Status)
}

func TestListOrdering(t *testing.T) {
	db := newTestDB(t)
	swaps := NewSwapRepository(db)
	ctx := context.Background()

	a := createUser(t, db, &models.User{Name: "A", Email: "a@example.com"})
	b := createUser(t, db, &models.User{Name: "B", Email: "b@example.com"})
	c := createUser(t, db, &models.User{Name: "C", Email: "c@example.com"})
	first := createSwap(t, swaps, a.ID, b.ID)
	second := createSwap(t, swaps, a.ID, c.ID)

	sent, err := swaps.ListByRequester(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, second.ID, sent[0].ID)
	assert.Equal(t, first.ID, sent[1].ID)

	received, err := swaps.ListByRecipient(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, first.ID, received[0].ID)
}
