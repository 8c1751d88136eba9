package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/sse"
	"github.com/papercomputeco/ragline/pkg/vector"
)

// SSE event types sent by POST /v1/query/stream.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// ConversationHeader carries the resolved conversation id on streaming
// responses so clients know it before the first fragment.
const ConversationHeader = "X-Conversation-ID"

var validate = validator.New()

// QueryRequest is the body of POST /v1/query and POST /v1/query/stream.
type QueryRequest struct {
	Question       string `json:"question" validate:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TokenData is the payload of a "token" event.
type TokenData struct {
	Text string `json:"text"`
}

// DoneData is the payload of the terminal "done" event.
type DoneData struct {
	ConversationID string          `json:"conversation_id"`
	Sources        []vector.Result `json:"sources"`
}

func (s *Server) parseQuery(c *fiber.Ctx) (query.Request, error) {
	var body QueryRequest
	if err := c.BodyParser(&body); err != nil {
		return query.Request{}, fmt.Errorf("%w: invalid request body: %w", query.ErrValidation, err)
	}
	if err := validate.Struct(&body); err != nil {
		return query.Request{}, fmt.Errorf("%w: %w", query.ErrValidation, err)
	}
	return query.Request{
		Question:       body.Question,
		ConversationID: body.ConversationID,
	}, nil
}

// handleQuery answers a question in one response.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	req, err := s.parseQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	resp, err := s.engine.Answer(c.UserContext(), req)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(resp)
}

// handleQueryStream answers a question as an SSE stream of "token" events
// followed by a single "done" or "error" event. Failures before the first
// fragment are reported as plain JSON errors.
func (s *Server) handleQueryStream(c *fiber.Ctx) error {
	req, err := s.parseQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	// The body is written after the handler returns, so the stream cannot
	// be bound to the fasthttp request context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.UserContext()))

	stream, err := s.engine.AnswerStream(ctx, req)
	if err != nil {
		cancel()
		return s.writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(ConversationHeader, stream.ConversationID().String())

	pr, pw := io.Pipe()
	go s.pipeStream(ctx, cancel, stream, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// pipeStream copies fragments into pw until the answer completes, fails, or
// the client stops reading.
func (s *Server) pipeStream(ctx context.Context, cancel context.CancelFunc, stream *query.Stream, pw *io.PipeWriter) {
	defer cancel()
	defer stream.Close()

	w := sse.NewWriter(pw)
	conversationID := stream.ConversationID().String()

	for {
		frag, err := stream.Next()
		switch {
		case err == nil:
			if werr := writeJSONEvent(w, EventToken, TokenData{Text: frag}); werr != nil {
				// client went away; Close abandons the turn
				s.logger.Debug("stream client disconnected",
					"conversation_id", conversationID,
					"error", werr,
				)
				pw.CloseWithError(werr)
				return
			}

		case errors.Is(err, io.EOF):
			_ = writeJSONEvent(w, EventDone, DoneData{
				ConversationID: conversationID,
				Sources:        stream.Sources(),
			})
			pw.Close()
			return

		default:
			if ctx.Err() == nil {
				_ = writeJSONEvent(w, EventError, toErrorResponse(err))
			}
			pw.Close()
			return
		}
	}
}

func writeJSONEvent(w *sse.Writer, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteEvent(sse.Event{Type: eventType, Data: string(data)})
}
