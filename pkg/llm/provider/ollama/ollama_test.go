package ollama_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/llm/provider"
	"github.com/papercomputeco/ragline/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = ollama.New()
	})

	It("returns 'ollama' as its name", func() {
		Expect(p.Name()).To(Equal("ollama"))
	})

	Describe("EncodeRequest", func() {
		It("always sends the stream flag", func() {
			body, err := p.EncodeRequest(&llm.ChatRequest{Model: "llama3.2", Messages: llm.UserPrompt("hi")})
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(body, &decoded)).To(Succeed())
			Expect(decoded["stream"]).To(BeFalse())
			Expect(decoded).NotTo(HaveKey("options"))
		})

		It("maps max tokens to num_predict", func() {
			n := 64
			body, err := p.EncodeRequest(&llm.ChatRequest{Model: "llama3.2", Messages: llm.UserPrompt("hi"), MaxTokens: &n})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`"num_predict":64`))
		})
	})

	Describe("ParseResponse", func() {
		It("extracts the message and token counts", func() {
			resp, err := p.ParseResponse([]byte(`{
				"model": "llama3.2",
				"created_at": "2024-01-01T00:00:00Z",
				"message": {"role": "assistant", "content": "Paris"},
				"done": true,
				"prompt_eval_count": 12,
				"eval_count": 3
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.Content).To(Equal("Paris"))
			Expect(resp.StopReason).To(Equal("stop"))
			Expect(resp.Usage.TotalTokens).To(Equal(15))
		})

		It("returns an error for an error payload", func() {
			_, err := p.ParseResponse([]byte(`{"error": "model not found"}`))
			Expect(err).To(MatchError(llm.ErrProviderError))
		})
	})

	Describe("ParseStreamChunk", func() {
		It("parses an in-progress line", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"Par"},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Content).To(Equal("Par"))
			Expect(chunk.Done).To(BeFalse())
		})

		It("parses the final line", func() {
			chunk, err := p.ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"length"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Done).To(BeTrue())
			Expect(chunk.StopReason).To(Equal("length"))
		})

		It("skips blank lines", func() {
			chunk, err := p.ParseStreamChunk([]byte("\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
		})
	})
})
