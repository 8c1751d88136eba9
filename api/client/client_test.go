package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/api"
	"github.com/papercomputeco/ragline/api/client"
	"github.com/papercomputeco/ragline/pkg/sse"
	"github.com/papercomputeco/ragline/pkg/vector"
)

const conversationID = "3f1c7a52-8c77-4a55-9d3e-0f4b1d2c6e10"

func writeEvent(w *sse.Writer, eventType string, payload any) {
	data, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())
	Expect(w.WriteEvent(sse.Event{Type: eventType, Data: string(data)})).To(Succeed())
}

var _ = Describe("Client", func() {
	var (
		mux    *http.ServeMux
		server *httptest.Server
		c      *client.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
		c = client.New(server.URL+"/", nil)
	})

	Describe("Query", func() {
		It("decodes the answer", func() {
			mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				var req api.QueryRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Question).To(Equal("What is X?"))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"answer":"X is ...","sources":[{"chunk_id":"a","content":"c","similarity":0.91}],"conversation_id":"` + conversationID + `"}`))
			})

			resp, err := c.Query(ctx, api.QueryRequest{Question: "What is X?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Answer).To(Equal("X is ..."))
			Expect(resp.Sources).To(HaveLen(1))
			Expect(resp.ConversationID.String()).To(Equal(conversationID))
		})

		It("surfaces API errors with their stage", func() {
			mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusGatewayTimeout)
				_, _ = w.Write([]byte(`{"error":"retrieval timed out","stage":"retrieving"}`))
			})

			_, err := c.Query(ctx, api.QueryRequest{Question: "q"})
			Expect(err).To(MatchError(client.ErrServer))
			Expect(err.Error()).To(ContainSubstring("504"))
			Expect(err.Error()).To(ContainSubstring("retrieving: retrieval timed out"))
		})
	})

	Describe("QueryStream", func() {
		It("delivers tokens and returns the joined answer", func() {
			mux.HandleFunc("POST /v1/query/stream", func(w http.ResponseWriter, _ *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "text/event-stream")
				w.Header().Set(api.ConversationHeader, conversationID)
				sw := sse.NewWriter(w)
				writeEvent(sw, api.EventToken, api.TokenData{Text: "Par"})
				writeEvent(sw, api.EventToken, api.TokenData{Text: "is"})
				writeEvent(sw, api.EventDone, api.DoneData{
					ConversationID: conversationID,
					Sources:        []vector.Result{{ChunkID: "a", Similarity: 0.91}},
				})
			})

			var tokens []string
			result, err := c.QueryStream(ctx, api.QueryRequest{Question: "q"}, func(t string) {
				tokens = append(tokens, t)
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens).To(Equal([]string{"Par", "is"}))
			Expect(result.Answer).To(Equal("Paris"))
			Expect(result.ConversationID).To(Equal(conversationID))
			Expect(result.Sources).To(HaveLen(1))
		})

		It("returns the error event as an error", func() {
			mux.HandleFunc("POST /v1/query/stream", func(w http.ResponseWriter, _ *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "text/event-stream")
				sw := sse.NewWriter(w)
				writeEvent(sw, api.EventToken, api.TokenData{Text: "Par"})
				writeEvent(sw, api.EventError, api.ErrorResponse{Error: "upstream failed", Stage: "generating"})
			})

			_, err := c.QueryStream(ctx, api.QueryRequest{Question: "q"}, nil)
			Expect(err).To(MatchError(client.ErrServer))
			Expect(err.Error()).To(ContainSubstring("generating: upstream failed"))
		})

		It("fails when the stream ends without a terminal event", func() {
			mux.HandleFunc("POST /v1/query/stream", func(w http.ResponseWriter, _ *http.Request) {
				defer GinkgoRecover()
				w.Header().Set("Content-Type", "text/event-stream")
				writeEvent(sse.NewWriter(w), api.EventToken, api.TokenData{Text: "Par"})
			})

			_, err := c.QueryStream(ctx, api.QueryRequest{Question: "q"}, nil)
			Expect(err).To(MatchError(ContainSubstring("stream ended before completion")))
		})
	})

	Describe("History", func() {
		It("decodes turns", func() {
			mux.HandleFunc("GET /v1/history/{id}", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.PathValue("id")).To(Equal(conversationID))
				_, _ = w.Write([]byte(`{"conversation_id":"` + conversationID + `","turns":[{"question":"Hi","answer":"Hello","created_at":"2026-01-02T03:04:05Z"}]}`))
			})

			out, err := c.History(ctx, conversationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Turns).To(HaveLen(1))
			Expect(out.Turns[0].Answer).To(Equal("Hello"))
		})
	})
})
