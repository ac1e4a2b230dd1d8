package repository

import (
	"context"
	"errors"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// SwapRepository defines the interface for swap-request data operations.
// Records are never deleted, only created and transitioned.
type SwapRepository interface {
	Create(ctx context.Context, req *models.SwapRequest) error
	GetByID(ctx context.Context, id uint) (*models.SwapRequest, error)
	HasPendingBetween(ctx context.Context, requesterID, recipientID uint) (bool, error)
	HasCompletedBetween(ctx context.Context, userID, otherID uint) (bool, error)
	ListByRequester(ctx context.Context, requesterID uint) ([]models.SwapRequest, error)
	ListByRecipient(ctx context.Context, recipientID uint) ([]models.SwapRequest, error)
	Transition(ctx context.Context, id uint, from, to models.SwapStatus, updates map[string]interface{}) error
}

// swapRepository implements SwapRepository
type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository creates a new swap-request repository
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, req *models.SwapRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id uint) (*models.SwapRequest, error) {
	var req models.SwapRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Requester.Skills").
		Preload("Recipient").
		Preload("Recipient.Skills").
		First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Swap request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *swapRepository) HasPendingBetween(ctx context.Context, requesterID, recipientID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("requester_id = ? AND recipient_id = ? AND status = ?",
			requesterID, recipientID, models.SwapStatusPending).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// HasCompletedBetween reports whether the two users finished a swap together,
// in either direction.
func (r *swapRepository) HasCompletedBetween(ctx context.Context, userID, otherID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("((requester_id = ? AND recipient_id = ?) OR (requester_id = ? AND recipient_id = ?)) AND status = ?",
			userID, otherID, otherID, userID, models.SwapStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *swapRepository) ListByRequester(ctx context.Context, requesterID uint) ([]models.SwapRequest, error) {
	return r.list(ctx, "requester_id = ?", requesterID)
}

func (r *swapRepository) ListByRecipient(ctx context.Context, recipientID uint) ([]models.SwapRequest, error) {
	return r.list(ctx, "recipient_id = ?", recipientID)
}

func (r *swapRepository) list(ctx context.Context, cond string, id uint) ([]models.SwapRequest, error) {
	var reqs []models.SwapRequest
	err := r.db.WithContext(ctx).
		Where(cond, id).
		Preload("Requester").
		Preload("Requester.Skills").
		Preload("Recipient").
		Preload("Recipient.Skills").
		Order("created_at DESC, id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// Transition applies a conditional status update: the row is only written if
// it still holds the `from` status, so the store itself rejects the losing
// side of a concurrent transition. Returns ConflictError when the guard fails.
func (r *swapRepository) Transition(ctx context.Context, id uint, from, to models.SwapStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Swap request is no longer " + string(from))
	}
	return nil
}
