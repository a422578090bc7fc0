package logger_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Valino123/trip-memory/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	Describe("NewLoggerWithWriters", func() {
		It("writes info-level output", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("hello")
			_ = l.Sync()

			Expect(buf.String()).To(ContainSubstring("hello"))
		})

		It("filters debug output when debug is false", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("hidden")
			_ = l.Sync()

			Expect(buf.String()).To(BeEmpty())
		})

		It("emits debug output when debug is true", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(true, &buf)
			l.Debug("visible")
			_ = l.Sync()

			Expect(buf.String()).To(ContainSubstring("visible"))
		})

		It("fans out to multiple writers", func() {
			var buf1, buf2 bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf1, &buf2)
			l.Info("multi")
			_ = l.Sync()

			Expect(buf1.String()).To(ContainSubstring("multi"))
			Expect(buf2.String()).To(ContainSubstring("multi"))
		})

		It("defaults to stdout when no writers are given", func() {
			l := logger.NewLoggerWithWriters(false)
			Expect(l).NotTo(BeNil())
		})
	})

	Describe("NewLogger", func() {
		It("returns a usable logger", func() {
			l := logger.NewLogger(true)
			Expect(func() { l.Debug("boot") }).NotTo(Panic())
		})
	})
})
