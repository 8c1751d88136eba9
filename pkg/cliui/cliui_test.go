package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations in milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats durations under a minute in seconds", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("formats longer durations in minutes and seconds", func() {
		Expect(cliui.FormatDuration(125 * time.Second)).To(Equal("2m05s"))
		Expect(cliui.FormatDuration(time.Minute + 400*time.Millisecond)).To(Equal("1m00s"))
	})
})

var _ = Describe("Mark", func() {
	It("distinguishes success from failure", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("Step", func() {
	It("writes a single success line to a non-terminal writer", func() {
		var buf bytes.Buffer
		ran := false

		Expect(cliui.Step(&buf, "Thinking", func() error {
			ran = true
			return nil
		})).To(Succeed())

		Expect(ran).To(BeTrue())
		out := buf.String()
		Expect(strings.Count(out, "\n")).To(Equal(1))
		Expect(strings.Count(out, "\r")).To(Equal(1))
		Expect(out).To(ContainSubstring(cliui.SuccessMark))
		Expect(out).To(ContainSubstring("Thinking"))
		Expect(out).To(ContainSubstring("ms"))
	})

	It("returns the error from fn and marks the line failed", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "Thinking", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		Expect(buf.String()).NotTo(ContainSubstring(cliui.SuccessMark))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("renders headings and wraps at the given width", func() {
		out, err := cliui.RenderMarkdown("# Sources\n\n"+strings.Repeat("word ", 30), 40)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Sources"))
		Expect(strings.Count(strings.TrimSpace(out), "\n")).To(BeNumerically(">", 2))
	})
})
