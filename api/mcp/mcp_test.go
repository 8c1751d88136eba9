package mcp_test

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/api/mcp"
	raglinelogger "github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/query"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
	"github.com/papercomputeco/ragline/pkg/vector"
)

func textOf(res *gomcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*gomcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		server  *mcp.Server
		engine  *query.Engine
		hist    *testutils.MockHistory
		gen     *testutils.MockGenerator
		session *gomcp.ClientSession
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		hist = testutils.NewMockHistory()
		gen = testutils.NewMockGenerator()
		gen.Answer = "Paris"

		var err error
		engine, err = query.NewEngine(query.Config{
			Embedder: testutils.NewMockEmbedder(),
			Retriever: testutils.NewMockRetriever(
				vector.Result{ChunkID: "doc-1", Content: "Paris is the capital of France.", Similarity: 0.9},
			),
			History:   hist,
			Generator: gen,
			Logger:    raglinelogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Engine: engine,
			Logger: raglinelogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		session, err = server.Connect(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(session.Close)
	})

	Describe("NewServer", func() {
		It("returns an error when the engine is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: raglinelogger.Nop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("query engine is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Engine: engine})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		It("lists ask and history", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(res.Tools))
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("ask", "history"))
		})
	})

	Describe("ask", func() {
		It("answers with sources and a conversation id", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "ask",
				Arguments: map[string]any{"question": "Capital of France?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.AskOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Answer).To(Equal("Paris"))
			Expect(out.Sources).To(HaveLen(1))
			Expect(out.Sources[0].ChunkID).To(Equal("doc-1"))
			Expect(uuid.Parse(out.ConversationID)).Error().NotTo(HaveOccurred())
			Expect(hist.Appends()).To(Equal(1))
		})

		It("reports engine failures as tool errors", func() {
			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "ask",
				Arguments: map[string]any{"question": "q", "conversation_id": "not-a-uuid"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("Failed to answer question"))
			Expect(gen.Calls()).To(BeZero())
		})
	})

	Describe("history", func() {
		It("returns the turns of a conversation", func() {
			id := uuid.New()
			hist.Seed(id, "Hi", "Hello")

			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "history",
				Arguments: map[string]any{"conversation_id": id.String()},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.HistoryOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
			Expect(out.Turns[0].Question).To(Equal("Hi"))
			Expect(out.Turns[0].Answer).To(Equal("Hello"))
		})

		It("reports read failures as tool errors", func() {
			hist.FailGet = true

			res, err := session.CallTool(ctx, &gomcp.CallToolParams{
				Name:      "history",
				Arguments: map[string]any{"conversation_id": uuid.NewString()},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
