package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/logger"
)

// decode parses the single JSON record in buf.
func decode(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var timeZero = time.Time{}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("writes slog text at info by default", func() {
		l := logger.New(logger.WithWriter(buf))
		l.Info("engine ready", "top_k", 5)
		l.Debug("hidden")

		Expect(buf.String()).To(ContainSubstring("engine ready"))
		Expect(buf.String()).To(ContainSubstring("top_k=5"))
		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
	})

	It("emits debug records with WithDebug", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithDebug(true))
		l.Debug("stage", "stage", "retrieving")

		Expect(buf.String()).To(ContainSubstring("retrieving"))
	})

	It("writes JSON with WithJSON", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true))
		l.Info("answered question", "sources", 3)

		parsed := decode(buf)
		Expect(parsed["msg"]).To(Equal("answered question"))
		Expect(parsed["sources"]).To(BeNumerically("==", 3))
	})

	It("prefers JSON when pretty is also requested", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithPretty(true), logger.WithJSON(true))
		l.Info("both")

		Expect(decode(buf)["msg"]).To(Equal("both"))
	})

	It("writes pretty output with WithPretty", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithPretty(true))
		l.Info("pretty output")

		Expect(buf.String()).To(ContainSubstring("pretty output"))
	})

	It("copies records to every writer", func() {
		var other bytes.Buffer
		l := logger.New(logger.WithWriters(buf, &other))
		l.Info("twice")

		Expect(buf.String()).To(ContainSubstring("twice"))
		Expect(other.String()).To(ContainSubstring("twice"))
	})

	It("nests attributes under groups", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true))
		l.WithGroup("request").Info("processed", "method", "POST")

		group, ok := decode(buf)["request"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(group["method"]).To(Equal("POST"))
	})
})

var _ = Describe("Redaction", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("masks default credential keys", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true))
		l.Info("provider configured", "api_key", "sk-live-secret", "Authorization", "Bearer x", "model", "gpt-3.5-turbo")

		parsed := decode(buf)
		Expect(parsed["api_key"]).To(Equal(logger.Redacted))
		Expect(parsed["Authorization"]).To(Equal(logger.Redacted))
		Expect(parsed["model"]).To(Equal("gpt-3.5-turbo"))
		Expect(buf.String()).NotTo(ContainSubstring("sk-live-secret"))
	})

	It("masks attributes bound with With", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true))
		l.With("token", "abc").Info("bound")

		Expect(decode(buf)["token"]).To(Equal(logger.Redacted))
	})

	It("masks keys inside groups", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true))
		l.Info("client", slog.Group("embedding", slog.String("api_key", "k"), slog.String("model", "m")))

		group, ok := decode(buf)["embedding"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(group["api_key"]).To(Equal(logger.Redacted))
		Expect(group["model"]).To(Equal("m"))
	})

	It("masks extra keys from WithRedact", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithJSON(true), logger.WithRedact("dsn"))
		l.Info("connecting", "dsn", "postgres://u:p@db/rag")

		Expect(decode(buf)["dsn"]).To(Equal(logger.Redacted))
	})

	It("masks with the pretty handler too", func() {
		l := logger.New(logger.WithWriter(buf), logger.WithPretty(true))
		l.Info("configured", "api_key", "sk-live-secret")

		Expect(buf.String()).NotTo(ContainSubstring("sk-live-secret"))
		Expect(buf.String()).To(ContainSubstring(logger.Redacted))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		l := logger.Nop()
		Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		Expect(func() {
			l.With("k", "v").WithGroup("g").Error("msg")
		}).NotTo(Panic())
	})
})

var _ = Describe("Multi", func() {
	It("sends each record to every logger", func() {
		var text, js bytes.Buffer
		multi := logger.Multi(
			logger.New(logger.WithWriter(&text)),
			logger.New(logger.WithWriter(&js), logger.WithJSON(true)),
		)
		multi.With("component", "serve").Info("broadcast")

		Expect(text.String()).To(ContainSubstring("broadcast"))
		Expect(decode(&js)["component"]).To(Equal("serve"))
	})

	It("respects each logger's level", func() {
		var info, debug bytes.Buffer
		multi := logger.Multi(
			logger.New(logger.WithWriter(&info)),
			logger.New(logger.WithWriter(&debug), logger.WithDebug(true)),
		)
		multi.Debug("detail")

		Expect(info.String()).To(BeEmpty())
		Expect(debug.String()).To(ContainSubstring("detail"))
	})

	It("keeps writing to healthy sinks when one fails", func() {
		var good bytes.Buffer
		multi := logger.Multi(
			logger.New(logger.WithWriter(failingWriter{})),
			logger.New(logger.WithWriter(&good)),
		)

		err := multi.Handler().Handle(context.Background(), slog.NewRecord(timeZero, slog.LevelInfo, "still here", 0))
		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(good.String()).To(ContainSubstring("still here"))
	})
})
