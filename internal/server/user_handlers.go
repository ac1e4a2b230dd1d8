package server

import (
	"time"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name           *string              `json:"name"`
		Location       *string              `json:"location"`
		Bio            *string              `json:"bio"`
		ProfilePicture *string              `json:"profile_picture"`
		Availability   *models.Availability `json:"availability"`
		IsPublic       *bool                `json:"is_public"`
		SkillsOffered  []string             `json:"skills_offered"`
		SkillsWanted   []string             `json:"skills_wanted"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	user, err := s.userService.UpdateProfile(c.Context(), userID, service.UpdateProfileInput{
		Name:           req.Name,
		Location:       req.Location,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		Availability:   req.Availability,
		IsPublic:       req.IsPublic,
		SkillsOffered:  req.SkillsOffered,
		SkillsWanted:   req.SkillsWanted,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	// Wanted skills drive the featured recommendations.
	if req.SkillsWanted != nil {
		s.searchService.InvalidateFeatured(c.Context(), userID)
	}

	return c.JSON(fiber.Map{"user": user})
}

// ChangePassword handles PUT /api/users/change-password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.ChangePassword(c.Context(), currentUserID(c),
		req.CurrentPassword, req.NewPassword); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// DeleteAccount handles DELETE /api/users/account
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.userService.DeactivateAccount(c.Context(), currentUserID(c)); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deactivated"})
}

// RateUser handles POST /api/users/:id/rate
func (s *Server) RateUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Rating float64 `json:"rating"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, svcErr := s.userService.RateUser(c.Context(), currentUserID(c), targetID, req.Rating)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{
		"rating":        user.Rating,
		"total_ratings": user.TotalRatings,
	})
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, svcErr := s.userService.GetProfile(c.Context(), currentUserID(c), currentUserRole(c), targetID)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{"user": user.ToProfile(time.Now())})
}
