// Package client calls a running ragline API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/api"
	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/sse"
	"github.com/papercomputeco/ragline/pkg/vector"
)

// ErrServer is returned when the API responds with an error.
var ErrServer = errors.New("ragline API error")

// Client talks to the ragline HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the server at baseURL. A nil httpClient uses one
// with a timeout long enough for slow generations.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// StreamResult is what remains once a streamed answer has finished.
type StreamResult struct {
	Answer         string
	ConversationID string
	Sources        []vector.Result
}

// Query asks a question and waits for the full answer.
func (c *Client) Query(ctx context.Context, req api.QueryRequest) (*query.Response, error) {
	resp, err := c.post(ctx, "/v1/query", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	out := &query.Response{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding answer: %w", err)
	}
	return out, nil
}

// QueryStream asks a question and calls onToken for every fragment as it
// arrives.
func (c *Client) QueryStream(ctx context.Context, req api.QueryRequest, onToken func(string)) (*StreamResult, error) {
	resp, err := c.post(ctx, "/v1/query/stream", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	result := &StreamResult{ConversationID: resp.Header.Get(api.ConversationHeader)}
	var answer strings.Builder

	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ended before completion", ErrServer)
		}
		if err != nil {
			return nil, fmt.Errorf("reading stream: %w", err)
		}

		switch ev.Type {
		case api.EventToken:
			var tok api.TokenData
			if err := json.Unmarshal([]byte(ev.Data), &tok); err != nil {
				return nil, fmt.Errorf("decoding token: %w", err)
			}
			answer.WriteString(tok.Text)
			if onToken != nil {
				onToken(tok.Text)
			}

		case api.EventDone:
			var done api.DoneData
			if err := json.Unmarshal([]byte(ev.Data), &done); err != nil {
				return nil, fmt.Errorf("decoding done event: %w", err)
			}
			if done.ConversationID != "" {
				result.ConversationID = done.ConversationID
			}
			result.Sources = done.Sources
			result.Answer = answer.String()
			return result, nil

		case api.EventError:
			var apiErr api.ErrorResponse
			if err := json.Unmarshal([]byte(ev.Data), &apiErr); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrServer, ev.Data)
			}
			return nil, fmt.Errorf("%w: %s", ErrServer, describe(apiErr))
		}
	}
}

// History fetches a conversation's turns.
func (c *Client) History(ctx context.Context, conversationID string) (*api.HistoryResponse, error) {
	endpoint := c.baseURL + "/v1/history/" + url.PathEscape(conversationID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("requesting history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	out := &api.HistoryResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to API: %w", err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr api.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, describe(apiErr))
	}
	return fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, strings.TrimSpace(string(body)))
}

func describe(e api.ErrorResponse) string {
	if e.Stage != "" {
		return e.Stage + ": " + e.Error
	}
	return e.Error
}
