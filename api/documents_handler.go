package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/pkg/vector"
)

const (
	defaultDocumentsLimit = 10
	maxDocumentsLimit     = 100
)

// DocumentsResponse is the body of GET /v1/documents.
type DocumentsResponse struct {
	Skip      int            `json:"skip"`
	Limit     int            `json:"limit"`
	Count     int            `json:"count"`
	Documents []vector.Chunk `json:"documents"`
}

// handleDocuments pages through stored chunks.
// Query parameters:
//   - skip (optional, default 0): number of chunks to skip
//   - limit (optional, default 10, max 100): page size
func (s *Server) handleDocuments(c *fiber.Ctx) error {
	if s.config.Documents == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{
			Error: "the configured document store does not support listing",
		})
	}

	skip, err := intQuery(c, "skip", 0)
	if err != nil || skip < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "skip must be a non-negative integer",
		})
	}

	limit, err := intQuery(c, "limit", defaultDocumentsLimit)
	if err != nil || limit <= 0 || limit > maxDocumentsLimit {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "limit must be an integer between 1 and 100",
		})
	}

	chunks, err := s.config.Documents.List(c.UserContext(), skip, limit)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to list documents",
		})
	}

	return c.JSON(DocumentsResponse{
		Skip:      skip,
		Limit:     limit,
		Count:     len(chunks),
		Documents: chunks,
	})
}

func intQuery(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
