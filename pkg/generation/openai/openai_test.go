package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/generation/openai"
)

// collect drains a stream into its fragments.
func collect(s generation.Stream) ([]string, error) {
	var out []string
	for {
		frag, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, frag)
	}
}

var _ = Describe("Generator", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		gen     *openai.Generator
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		gen, err = openai.NewGenerator(openai.GeneratorConfig{
			APIKey:  "sk-test",
			BaseURL: server.URL,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an api key", func() {
		_, err := openai.NewGenerator(openai.GeneratorConfig{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Complete", func() {
		It("sends the prompt as a single user message", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/chat/completions"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

				var body struct {
					Model    string `json:"model"`
					Stream   bool   `json:"stream"`
					Messages []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body.Model).To(Equal(openai.DefaultModel))
				Expect(body.Stream).To(BeFalse())
				Expect(body.Messages).To(HaveLen(1))
				Expect(body.Messages[0].Role).To(Equal("user"))
				Expect(body.Messages[0].Content).To(Equal("What is X?"))

				w.Write([]byte(`{"model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"X is ..."},"finish_reason":"stop"}]}`))
			}

			answer, err := gen.Complete(context.Background(), "What is X?")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("X is ..."))
		})

		It("wraps api errors in ErrUpstream", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			}

			_, err := gen.Complete(context.Background(), "q")
			Expect(err).To(MatchError(generation.ErrUpstream))
			Expect(err.Error()).To(ContainSubstring("rate limited"))
		})
	})

	Describe("Stream", func() {
		It("yields delta fragments until [DONE]", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Header.Get("Accept")).To(Equal("text/event-stream"))

				w.Header().Set("Content-Type", "text/event-stream")
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n\n")
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Par\"}}]}\n\n")
				io.WriteString(w, ": keep-alive\n\n")
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"is\"}}]}\n\n")
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
				io.WriteString(w, "data: [DONE]\n\n")
			}

			s, err := gen.Stream(context.Background(), "q")
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			frags, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(frags).To(Equal([]string{"Par", "is"}))

			_, err = s.Next()
			Expect(err).To(Equal(io.EOF))
		})

		It("reports a truncated stream as ErrUpstream", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Par\"}}]}\n\n")
			}

			s, err := gen.Stream(context.Background(), "q")
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			frags, err := collect(s)
			Expect(frags).To(Equal([]string{"Par"}))
			Expect(err).To(MatchError(generation.ErrUpstream))
		})

		It("fails fast on a non-200 status", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, "boom")
			}

			_, err := gen.Stream(context.Background(), "q")
			Expect(err).To(MatchError(generation.ErrUpstream))
		})

		It("allows Close before the stream is drained", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Par\"}}]}\n\n")
				io.WriteString(w, "data: [DONE]\n\n")
			}

			s, err := gen.Stream(context.Background(), "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())
		})
	})
})
