package sse

import (
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// drain reads every event until io.EOF.
func drain(r *Reader) []*Event {
	var events []*Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event then returns io.EOF", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				_, err = r.Next()
				Expect(err).To(Equal(io.EOF))
			})

			It("parses multiple events", func() {
				events := drain(NewReader(strings.NewReader("data: first\n\ndata: second\n\n")))
				Expect(events).To(HaveLen(2))
				Expect(events[0].Data).To(Equal("first"))
				Expect(events[1].Data).To(Equal("second"))
			})

			It("parses event type and ID", func() {
				r := NewReader(strings.NewReader("id: 42\nevent: token\ndata: {\"text\":\"Par\"}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Type).To(Equal("token"))
				Expect(ev.Data).To(Equal("{\"text\":\"Par\"}"))
			})

			It("joins multiple data lines with newline", func() {
				r := NewReader(strings.NewReader("data: line one\ndata: line two\ndata: line three\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two\nline three"))
			})
		})

		Context("with OpenAI-style SSE", func() {
			It("parses streaming chunks and the [DONE] marker", func() {
				input := "data: {\"choices\":[{\"delta\":{\"content\":\"Par\"}}]}\n\n" +
					"data: {\"choices\":[{\"delta\":{\"content\":\"is\"}}]}\n\n" +
					"data: [DONE]\n\n"

				events := drain(NewReader(strings.NewReader(input)))
				Expect(events).To(HaveLen(3))
				Expect(events[0].Data).To(ContainSubstring("Par"))
				Expect(events[2].Data).To(Equal("[DONE]"))
			})
		})

		Context("with comments and field variations", func() {
			It("ignores comment lines", func() {
				events := drain(NewReader(strings.NewReader(": keep-alive\ndata: hello\n\n")))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hello"))
			})

			It("handles data field with no space after colon", func() {
				events := drain(NewReader(strings.NewReader("data:no-space\n\n")))
				Expect(events[0].Data).To(Equal("no-space"))
			})

			It("handles empty data field", func() {
				events := drain(NewReader(strings.NewReader("data: \n\n")))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(BeEmpty())
			})

			It("ignores unknown fields", func() {
				events := drain(NewReader(strings.NewReader("retry: 3000\nfoo: bar\ndata: hello\n\n")))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("hello"))
			})
		})

		Context("edge cases", func() {
			It("returns io.EOF on empty input", func() {
				_, err := NewReader(strings.NewReader("")).Next()
				Expect(err).To(Equal(io.EOF))
			})

			It("returns io.EOF on input with only blank lines", func() {
				_, err := NewReader(strings.NewReader("\n\n\n")).Next()
				Expect(err).To(Equal(io.EOF))
			})

			It("yields an event when the stream ends without a trailing blank line", func() {
				events := drain(NewReader(strings.NewReader("data: unterminated")))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal("unterminated"))
			})
		})
	})
})
