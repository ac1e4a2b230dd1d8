// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// SearchFilters are the optional directory search criteria. Zero values mean
// "no filter"; rating bounds default to the full [0,5] range.
type SearchFilters struct {
	Keyword      string
	Category     string
	Location     string
	MinRating    float64
	MaxRating    float64
	Availability models.Availability
	SortBy       string
	SortOrder    string
}

// sortColumns whitelists the accepted sort keys.
var sortColumns = map[string]string{
	"rating":      "rating",
	"name":        "name",
	"location":    "location",
	"joinedAt":    "joined_at",
	"lastActive":  "last_active",
	"createdAt":   "created_at",
	"joined_at":   "joined_at",
	"last_active": "last_active",
	"created_at":  "created_at",
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ReplaceSkills(ctx context.Context, userID uint, skills []models.Skill) error
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
	Search(ctx context.Context, callerID uint, f SearchFilters, page, limit int) ([]models.User, int64, error)
	FindBySkill(ctx context.Context, callerID uint, skill string, page, limit int) ([]models.User, int64, error)
	FindOfferingAny(ctx context.Context, callerID uint, skills []string, minRating float64, limit int) ([]models.User, error)
	TopRated(ctx context.Context, callerID uint, excludeIDs []uint, limit int) ([]models.User, error)
	SkillSuggestions(ctx context.Context, query string, limit int) ([]string, error)
	LocationSuggestions(ctx context.Context, query string, limit int) ([]string, error)
	UserSuggestions(ctx context.Context, query string, limit int) ([]models.User, error)
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Skills").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail matches case-insensitively and includes inactive records so the
// uniqueness check covers soft-deleted accounts. Returns (nil, nil) when no
// record exists.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Skills").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Skills").Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ReplaceSkills swaps the user's skill rows for the given set in one transaction.
func (r *userRepository) ReplaceSkills(ctx context.Context, userID uint, skills []models.Skill) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Skill{}).Error; err != nil {
			return err
		}
		for i := range skills {
			skills[i].ID = 0
			skills[i].UserID = userID
		}
		if len(skills) == 0 {
			return nil
		}
		return tx.Create(&skills).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// TouchLastActive updates only the last_active column, skipping full-record
// validation and the updated_at bump.
func (r *userRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active", at).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// visible scopes a query to records discoverable by callerID: public, active,
// and never the caller's own record.
func visible(db *gorm.DB, callerID uint) *gorm.DB {
	return db.Where("is_active = ? AND is_public = ? AND id != ?", true, true, callerID)
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func (r *userRepository) Search(ctx context.Context, callerID uint, f SearchFilters, page, limit int) ([]models.User, int64, error) {
	q := visible(r.db.WithContext(ctx).Model(&models.User{}), callerID)

	if f.Keyword != "" {
		kw := contains(f.Keyword)
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(bio) LIKE ? OR EXISTS (SELECT 1 FROM skills WHERE skills.user_id = users.id AND LOWER(skills.name) LIKE ?)",
			kw, kw, kw,
		)
	}
	if f.Category != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM skills WHERE skills.user_id = users.id AND skills.kind = ? AND LOWER(skills.category) LIKE ?)",
			models.SkillOffered, contains(f.Category),
		)
	}
	if f.Location != "" {
		q = q.Where("LOWER(location) LIKE ?", contains(f.Location))
	}
	minRating, maxRating := f.MinRating, f.MaxRating
	if maxRating == 0 {
		maxRating = 5
	}
	q = q.Where("rating >= ? AND rating <= ?", minRating, maxRating)
	if f.Availability != "" {
		q = q.Where("availability = ?", f.Availability)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	err := q.Order(orderClause(f.SortBy, f.SortOrder)).
		Limit(limit).
		Offset((page - 1) * limit).
		Preload("Skills").
		Find(&users).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

// orderClause builds a safe ORDER BY from the whitelisted sort keys.
// A secondary id key keeps pagination stable across identical sort values.
func orderClause(sortBy, sortOrder string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

func (r *userRepository) FindBySkill(ctx context.Context, callerID uint, skill string, page, limit int) ([]models.User, int64, error) {
	q := visible(r.db.WithContext(ctx).Model(&models.User{}), callerID).
		Where(
			"EXISTS (SELECT 1 FROM skills WHERE skills.user_id = users.id AND skills.kind = ? AND LOWER(skills.name) LIKE ?)",
			models.SkillOffered, contains(skill),
		)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	err := q.Order("rating DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Preload("Skills").
		Find(&users).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

// FindOfferingAny returns visible users offering at least one of the given
// skills with rating >= minRating, best rated first.
func (r *userRepository) FindOfferingAny(ctx context.Context, callerID uint, skills []string, minRating float64, limit int) ([]models.User, error) {
	if len(skills) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(skills))
	for _, s := range skills {
		lowered = append(lowered, strings.ToLower(s))
	}

	var users []models.User
	err := visible(r.db.WithContext(ctx).Model(&models.User{}), callerID).
		Where(
			"rating >= ? AND EXISTS (SELECT 1 FROM skills WHERE skills.user_id = users.id AND skills.kind = ? AND LOWER(skills.name) IN ?)",
			minRating, models.SkillOffered, lowered,
		).
		Order("rating DESC, total_ratings DESC, last_active DESC, id DESC").
		Limit(limit).
		Preload("Skills").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// TopRated returns the highest-rated visible users, excluding the given ids.
func (r *userRepository) TopRated(ctx context.Context, callerID uint, excludeIDs []uint, limit int) ([]models.User, error) {
	q := visible(r.db.WithContext(ctx).Model(&models.User{}), callerID)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}

	var users []models.User
	err := q.Order("rating DESC, last_active DESC, created_at DESC, id DESC").
		Limit(limit).
		Preload("Skills").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// SkillSuggestions returns distinct skill names (offered and wanted) of
// visible users matching the query, case-insensitive.
func (r *userRepository) SkillSuggestions(ctx context.Context, query string, limit int) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Skill{}).
		Distinct("skills.name").
		Joins("JOIN users ON users.id = skills.user_id").
		Where("users.is_active = ? AND users.is_public = ?", true, true).
		Where("LOWER(skills.name) LIKE ?", contains(query)).
		Order("skills.name ASC").
		Limit(limit).
		Pluck("skills.name", &names).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}

// LocationSuggestions returns distinct non-empty locations of visible users
// matching the query.
func (r *userRepository) LocationSuggestions(ctx context.Context, query string, limit int) ([]string, error) {
	var locations []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Distinct("location").
		Where("is_active = ? AND is_public = ? AND location != ''", true, true).
		Where("LOWER(location) LIKE ?", contains(query)).
		Order("location ASC").
		Limit(limit).
		Pluck("location", &locations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return locations, nil
}

// UserSuggestions returns visible users whose name matches the query.
func (r *userRepository) UserSuggestions(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ? AND is_public = ?", true, true).
		Where("LOWER(name) LIKE ?", contains(query)).
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
