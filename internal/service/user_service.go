package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService provides profile and account business logic.
type UserService struct {
	userRepo repository.UserRepository
	swapRepo repository.SwapRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, swapRepo repository.SwapRepository) *UserService {
	return &UserService{userRepo: userRepo, swapRepo: swapRepo}
}

// UpdateProfileInput carries the editable profile fields. Pointer fields
// distinguish "not sent" from "set to the zero value".
type UpdateProfileInput struct {
	Name           *string
	Location       *string
	Bio            *string
	ProfilePicture *string
	Availability   *models.Availability
	IsPublic       *bool
	SkillsOffered  []string
	SkillsWanted   []string
}

// GetProfile returns the target user's profile as seen by the caller.
// Private profiles are only visible to their owner and to admins.
func (s *UserService) GetProfile(ctx context.Context, callerID uint, callerRole models.Role, targetID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewNotFoundError("User", targetID)
	}
	if !user.IsPublic && callerID != targetID && callerRole != models.RoleAdmin {
		return nil, models.NewForbiddenError("This profile is private")
	}
	return user, nil
}

// GetMe returns the caller's own record.
func (s *UserService) GetMe(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile applies the provided fields to the caller's profile.
// Skill slices replace the existing sets when non-nil.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500
	const maxLocationLen = 100

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		if len(*in.Location) > maxLocationLen {
			return nil, models.NewValidationError("Location too long (max 100 characters)")
		}
		user.Location = strings.TrimSpace(*in.Location)
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.ProfilePicture != nil {
		user.ProfilePicture = *in.ProfilePicture
	}
	if in.Availability != nil {
		if !models.ValidAvailability(*in.Availability) {
			return nil, models.NewValidationError("Invalid availability value")
		}
		user.Availability = *in.Availability
	}
	if in.IsPublic != nil {
		user.IsPublic = *in.IsPublic
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if in.SkillsOffered != nil || in.SkillsWanted != nil {
		skills := buildSkills(user, in.SkillsOffered, in.SkillsWanted)
		if err := s.userRepo.ReplaceSkills(ctx, userID, skills); err != nil {
			return nil, err
		}
	}

	return s.userRepo.GetByID(ctx, userID)
}

// buildSkills merges the requested skill sets with the kinds left untouched.
func buildSkills(user *models.User, offered, wanted []string) []models.Skill {
	var skills []models.Skill
	if offered == nil {
		for _, s := range user.Skills {
			if s.Kind == models.SkillOffered {
				skills = append(skills, models.Skill{Name: s.Name, Category: s.Category, Kind: s.Kind})
			}
		}
	} else {
		for _, name := range validation.NormalizeSkills(offered) {
			skills = append(skills, models.Skill{Name: name, Kind: models.SkillOffered})
		}
	}
	if wanted == nil {
		for _, s := range user.Skills {
			if s.Kind == models.SkillWanted {
				skills = append(skills, models.Skill{Name: s.Name, Category: s.Category, Kind: s.Kind})
			}
		}
	} else {
		for _, name := range validation.NormalizeSkills(wanted) {
			skills = append(skills, models.Skill{Name: name, Kind: models.SkillWanted})
		}
	}
	return skills
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, updated string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(updated); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(updated), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.userRepo.Update(ctx, user)
}

// DeactivateAccount soft deletes the account: the record stays for swap
// history, but the profile disappears from the directory and the email is
// mangled so it can be reused by a fresh signup.
func (s *UserService) DeactivateAccount(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.IsActive = false
	user.IsPublic = false
	user.Email = fmt.Sprintf("deleted_%d_%s", time.Now().Unix(), user.Email)
	return s.userRepo.Update(ctx, user)
}

// RateUser folds a 1-5 rating from raterID into the target's running mean.
// Ratings are only accepted between users who completed a swap together.
func (s *UserService) RateUser(ctx context.Context, raterID, targetID uint, rating float64) (*models.User, error) {
	if raterID == targetID {
		return nil, models.NewValidationError("Cannot rate yourself")
	}
	if rating < 1 || rating > 5 {
		return nil, models.NewValidationError("Rating must be between 1 and 5")
	}

	completed, err := s.swapRepo.HasCompletedBetween(ctx, raterID, targetID)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, models.NewForbiddenError("You can only rate users you have completed a swap with")
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewNotFoundError("User", targetID)
	}

	user.ApplyRating(rating)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// TouchActivity records that the user was just active.
func (s *UserService) TouchActivity(ctx context.Context, userID uint) error {
	return s.userRepo.TouchLastActive(ctx, userID, time.Now())
}
