package gemini_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/generation/gemini"
)

var _ = Describe("Generator", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		gen     *gemini.Generator
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		gen, err = gemini.NewGenerator(context.Background(), gemini.GeneratorConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the candidate text", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Paris"}]},"finishReason":"STOP"}]}`)
		}

		answer, err := gen.Complete(context.Background(), "Capital of France?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("Paris"))
	})

	It("wraps provider failures in ErrUpstream", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"code":500,"message":"backend unavailable","status":"INTERNAL"}}`)
		}

		_, err := gen.Complete(context.Background(), "q")
		Expect(err).To(MatchError(generation.ErrUpstream))
	})

	It("wraps stream failures in ErrUpstream", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"code":500,"message":"backend unavailable","status":"INTERNAL"}}`)
		}

		s, err := gen.Stream(context.Background(), "q")
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = s.Next()
		Expect(err).To(MatchError(generation.ErrUpstream))
	})
})
