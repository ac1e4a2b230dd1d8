package server

import (
	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendSwapRequest handles POST /api/swaps/send
func (s *Server) SendSwapRequest(c *fiber.Ctx) error {
	var req struct {
		RecipientID    uint   `json:"recipient_id"`
		RequesterSkill string `json:"requester_skill"`
		RecipientSkill string `json:"recipient_skill"`
		Message        string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.RecipientID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Recipient is required"))
	}

	swap, err := s.swapService.Send(c.Context(), currentUserID(c), service.SendSwapInput{
		RecipientID:    req.RecipientID,
		RequesterSkill: req.RequesterSkill,
		RecipientSkill: req.RecipientSkill,
		Message:        req.Message,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"swap": swap})
}

// GetSentSwaps handles GET /api/swaps/user
func (s *Server) GetSentSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.GetSent(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// GetReceivedSwaps handles GET /api/swaps/received
func (s *Server) GetReceivedSwaps(c *fiber.Ctx) error {
	swaps, err := s.swapService.GetReceived(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// AcceptSwap handles PUT /api/swaps/:id/accept
func (s *Server) AcceptSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// Notes are optional, so a missing body is fine.
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&req)

	swap, svcErr := s.swapService.Accept(c.Context(), currentUserID(c), swapID, req.Notes)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{"swap": swap})
}

// RejectSwap handles PUT /api/swaps/:id/reject
func (s *Server) RejectSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&req)

	swap, svcErr := s.swapService.Reject(c.Context(), currentUserID(c), swapID, req.Notes)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{"swap": swap})
}

// CompleteSwap handles PUT /api/swaps/:id/complete
func (s *Server) CompleteSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, svcErr := s.swapService.Complete(c.Context(), currentUserID(c), swapID)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{"swap": swap})
}

// CancelSwap handles DELETE /api/swaps/:id/cancel
func (s *Server) CancelSwap(c *fiber.Ctx) error {
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	swap, svcErr := s.swapService.Cancel(c.Context(), currentUserID(c), swapID)
	if svcErr != nil {
		return models.RespondError(c, svcErr)
	}
	return c.JSON(fiber.Map{"swap": swap})
}
