package server

import (
	"net/url"

	"skillswap/internal/models"
	"skillswap/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/search/users
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, limit := parsePage(c)
	filters := repository.SearchFilters{
		Keyword:      c.Query("q"),
		Category:     c.Query("category"),
		Location:     c.Query("location"),
		MinRating:    c.QueryFloat("min_rating", 0),
		MaxRating:    c.QueryFloat("max_rating", 0),
		Availability: models.Availability(c.Query("availability")),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}

	result, err := s.searchService.SearchUsers(c.Context(), currentUserID(c), filters, page, limit)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(result)
}

// GetFeaturedUsers handles GET /api/search/featured
func (s *Server) GetFeaturedUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	profiles, err := s.searchService.GetFeaturedUsers(c.Context(), currentUserID(c), limit)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"users": profiles})
}

// GetUsersBySkill handles GET /api/search/skill/:skill
func (s *Server) GetUsersBySkill(c *fiber.Ctx) error {
	skill, err := url.PathUnescape(c.Params("skill"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid skill"))
	}
	page, limit := parsePage(c)

	result, svcErr := s.searchService.GetUsersBySkill(c.Context(), currentUserID(c), skill, page, limit)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(result)
}

// GetSearchSuggestions handles GET /api/search/suggestions
func (s *Server) GetSearchSuggestions(c *fiber.Ctx) error {
	suggestions, err := s.searchService.GetSuggestions(c.Context(), c.Query("q"), c.Query("type"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(suggestions)
}
