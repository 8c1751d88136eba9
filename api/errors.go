package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/pkg/query"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// statusClientClosed is the nginx convention for a request the client
// abandoned before a response was written.
const statusClientClosed = 499

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, query.ErrRetrievalTimeout), errors.Is(err, query.ErrGenerationTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, query.ErrUpstreamEmbedding),
		errors.Is(err, query.ErrUpstreamGeneration),
		errors.Is(err, query.ErrRetrieval):
		return fiber.StatusBadGateway
	case errors.Is(err, query.ErrHistoryRead):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, query.ErrCanceled):
		return statusClientClosed
	default:
		return fiber.StatusInternalServerError
	}
}

func toErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	var se *query.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
		resp.Error = se.Err.Error()
	}
	return resp
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed",
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return c.Status(status).JSON(toErrorResponse(err))
}
