package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/sse"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
)

func postJSON(path string, body any) *http.Request {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](resp *http.Response) T {
	var out T
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, &out)).To(Succeed(), string(body))
	return out
}

func readEvents(resp *http.Response) []*sse.Event {
	r := sse.NewReader(resp.Body)
	var events []*sse.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
}

var _ = Describe("Server", func() {
	var (
		server    *Server
		retriever *testutils.MockRetriever
		hist      *testutils.MockHistory
		gen       *testutils.MockGenerator
		cfg       Config
		engineCfg query.Config
	)

	build := func() {
		engine, err := query.NewEngine(engineCfg)
		Expect(err).NotTo(HaveOccurred())
		server, err = NewServer(cfg, engine, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		retriever = testutils.NewMockRetriever(
			vector.Result{ChunkID: "a", Content: "X is used for unknowns.", Similarity: 0.91},
			vector.Result{ChunkID: "b", Content: "X follows W.", Similarity: 0.85},
		)
		hist = testutils.NewMockHistory()
		gen = testutils.NewMockGenerator()

		cfg = Config{ListenAddr: ":0"}
		engineCfg = query.Config{
			Embedder:  testutils.NewMockEmbedder(),
			Retriever: retriever,
			History:   hist,
			Generator: gen,
			Logger:    logger.Nop(),
		}
		build()
	})

	Describe("NewServer", func() {
		It("requires an engine", func() {
			_, err := NewServer(cfg, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /v1/query", func() {
		It("returns the answer, sources and conversation id", func() {
			gen.Answer = "X is ..."

			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "What is X?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			out := decode[query.Response](resp)
			Expect(out.Answer).To(Equal("X is ..."))
			Expect(out.Sources).To(HaveLen(2))
			Expect(out.Sources[0].ChunkID).To(Equal("a"))
			Expect(out.ConversationID).NotTo(Equal(uuid.Nil))
		})

		It("rejects a missing question", func() {
			resp, err := server.app.Test(postJSON("/v1/query", map[string]any{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(gen.Calls()).To(BeZero())
		})

		It("rejects a malformed conversation id", func() {
			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "q", ConversationID: "123"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(retriever.Calls()).To(BeZero())
		})

		It("accepts an uppercase conversation id", func() {
			upper := "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"
			id := uuid.MustParse(upper)
			hist.Seed(id, "Hi", "Hello")
			gen.Answer = "ok"

			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "q", ConversationID: upper}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			out := decode[query.Response](resp)
			Expect(out.ConversationID).To(Equal(id))

			turns, err := hist.Get(context.Background(), id)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
		})

		It("rejects a body that is not JSON", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/query", strings.NewReader("{"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("maps a retrieval timeout to 504", func() {
			engineCfg.RetrieveTimeout = 10 * time.Millisecond
			retriever.Delay = time.Second
			build()

			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "q"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusGatewayTimeout))

			out := decode[ErrorResponse](resp)
			Expect(out.Stage).To(Equal(string(query.StageRetrieving)))
		})

		It("maps an upstream generation failure to 502", func() {
			gen.Err = generation.ErrUpstream

			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "q"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
		})

		It("maps a history read failure to 503", func() {
			hist.FailGet = true

			resp, err := server.app.Test(postJSON("/v1/query", QueryRequest{Question: "q"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Describe("POST /v1/query/stream", func() {
		It("streams token events then done", func() {
			id := uuid.New()
			hist.Seed(id, "Hi", "Hello")
			gen.Fragments = []string{"Par", "is"}

			resp, err := server.app.Test(postJSON("/v1/query/stream", QueryRequest{
				Question:       "Capital of France?",
				ConversationID: id.String(),
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get(fiber.HeaderContentType)).To(HavePrefix("text/event-stream"))
			Expect(resp.Header.Get(ConversationHeader)).To(Equal(id.String()))

			events := readEvents(resp)
			Expect(events).To(HaveLen(3))
			Expect(events[0].Type).To(Equal(EventToken))
			Expect(events[0].Data).To(MatchJSON(`{"text":"Par"}`))
			Expect(events[1].Data).To(MatchJSON(`{"text":"is"}`))
			Expect(events[2].Type).To(Equal(EventDone))

			var done DoneData
			Expect(json.Unmarshal([]byte(events[2].Data), &done)).To(Succeed())
			Expect(done.ConversationID).To(Equal(id.String()))
			Expect(done.Sources).To(HaveLen(2))

			turns, err := hist.Get(context.Background(), id)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[1].Answer).To(Equal("Paris"))
		})

		It("ends with an error event when the upstream fails mid-stream", func() {
			gen.Fragments = []string{"Par"}
			gen.StreamErr = generation.ErrUpstream

			resp, err := server.app.Test(postJSON("/v1/query/stream", QueryRequest{Question: "q"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			events := readEvents(resp)
			Expect(events).To(HaveLen(2))
			Expect(events[1].Type).To(Equal(EventError))

			var payload ErrorResponse
			Expect(json.Unmarshal([]byte(events[1].Data), &payload)).To(Succeed())
			Expect(payload.Stage).To(Equal(string(query.StageGenerating)))
			Expect(hist.Appends()).To(BeZero())
		})

		It("accepts an uppercase conversation id", func() {
			upper := "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"
			gen.Fragments = []string{"ok"}

			resp, err := server.app.Test(postJSON("/v1/query/stream", QueryRequest{Question: "q", ConversationID: upper}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get(ConversationHeader)).To(Equal(strings.ToLower(upper)))

			events := readEvents(resp)
			Expect(events).To(HaveLen(2))
			Expect(events[1].Type).To(Equal(EventDone))
			Expect(hist.Appends()).To(Equal(1))
		})

		It("abandons the turn when the client stops reading", func() {
			gate := make(chan struct{})
			gen.Gate = gate
			gen.Fragments = []string{"Par", "is", "!"}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			stream, err := server.engine.AnswerStream(ctx, query.Request{Question: "Capital of France?"})
			Expect(err).NotTo(HaveOccurred())

			pr, pw := io.Pipe()
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				server.pipeStream(ctx, cancel, stream, pw)
			}()

			gate <- struct{}{}
			ev, err := sse.NewReader(pr).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal(EventToken))
			Expect(ev.Data).To(MatchJSON(`{"text":"Par"}`))

			Expect(pr.Close()).To(Succeed())
			gate <- struct{}{}

			Eventually(finished).Should(BeClosed())
			Expect(ctx.Err()).To(MatchError(context.Canceled))
			Expect(gen.LastStream().Closed()).To(BeTrue())
			Expect(gen.LastStream().Consumed()).To(Equal(2))
			Expect(hist.Appends()).To(BeZero())
		})

		It("reports failures before the first fragment as JSON", func() {
			resp, err := server.app.Test(postJSON("/v1/query/stream", QueryRequest{Question: "q", ConversationID: "nope"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/history/:conversation_id", func() {
		It("returns turns oldest first", func() {
			id := uuid.New()
			hist.Seed(id, "Hi", "Hello")
			hist.Seed(id, "Capital of France?", "Paris")

			req, err := http.NewRequest(http.MethodGet, "/v1/history/"+id.String(), nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			out := decode[HistoryResponse](resp)
			Expect(out.ConversationID).To(Equal(id.String()))
			Expect(out.Turns).To(HaveLen(2))
			Expect(out.Turns[0].Question).To(Equal("Hi"))
			Expect(out.Turns[1].Answer).To(Equal("Paris"))
		})

		It("returns an empty list for an unknown conversation", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/history/"+uuid.NewString(), nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[HistoryResponse](resp).Turns).To(BeEmpty())
		})

		It("rejects a malformed id", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/history/not-a-uuid", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/documents", func() {
		It("returns 501 when the store cannot list", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/documents", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotImplemented))
		})

		Context("with a listable store", func() {
			BeforeEach(func() {
				engineCfg.Retriever = inmemory.New(
					vector.Chunk{ID: "a", Content: "first", Embedding: []float32{1, 0}},
					vector.Chunk{ID: "b", Content: "second", Embedding: []float32{0, 1}},
					vector.Chunk{ID: "c", Content: "third", Embedding: []float32{1, 1}},
				)
				build()
			})

			It("pages with skip and limit", func() {
				req, err := http.NewRequest(http.MethodGet, "/v1/documents?skip=1&limit=1", nil)
				Expect(err).NotTo(HaveOccurred())

				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				out := decode[DocumentsResponse](resp)
				Expect(out.Count).To(Equal(1))
				Expect(out.Documents[0].ID).To(Equal("b"))
			})

			It("rejects an out of range limit", func() {
				req, err := http.NewRequest(http.MethodGet, "/v1/documents?limit=1000", nil)
				Expect(err).NotTo(HaveOccurred())

				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})
		})
	})
})
