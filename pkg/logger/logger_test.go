package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/logger"
)

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		Expect(json.Unmarshal([]byte(line), &m)).To(Succeed())
		out = append(out, m)
	}
	return out
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

var _ = Describe("New", func() {
	It("writes text at Info by default", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Debug("quiet")
		l.Info("extraction saved", "attributes", 2)

		Expect(buf.String()).NotTo(ContainSubstring("quiet"))
		Expect(buf.String()).To(ContainSubstring("extraction saved"))
		Expect(buf.String()).To(ContainSubstring("attributes=2"))
	})

	It("lowers the level with WithDebug", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithDebug(true)).Debug("batch detected")
		Expect(buf.String()).To(ContainSubstring("batch detected"))
	})

	It("raises the level with WithLevel", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelWarn))
		l.Info("ignored")
		l.Warn("queue full")
		Expect(buf.String()).NotTo(ContainSubstring("ignored"))
		Expect(buf.String()).To(ContainSubstring("queue full"))
	})

	It("prefers JSON over pretty output", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
		l.Info("organization finished", "run_id", "r-1")

		lines := decodeLines(&buf)
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]).To(HaveKeyWithValue("msg", "organization finished"))
		Expect(lines[0]).To(HaveKeyWithValue("run_id", "r-1"))
	})

	It("renders through charmbracelet/log when pretty", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithPretty(true)).Info("starting memoir server")
		Expect(buf.String()).To(ContainSubstring("starting memoir server"))
	})

	It("copies to every writer", func() {
		var a, b bytes.Buffer
		logger.New(logger.WithWriters(&a, &b)).Info("both")
		Expect(a.String()).To(ContainSubstring("both"))
		Expect(b.String()).To(ContainSubstring("both"))
	})

	It("includes the source location on request", func() {
		var buf bytes.Buffer
		logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true)).Info("where")
		Expect(decodeLines(&buf)[0]).To(HaveKey("source"))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		l := logger.Nop()
		Expect(l.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		Expect(func() { l.With("k", "v").WithGroup("g").Error("nothing") }).NotTo(Panic())
	})
})

var _ = Describe("Multi", func() {
	It("sends each record to every logger at its own level", func() {
		var terminal, file bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&terminal)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true), logger.WithDebug(true)),
		)
		l.Debug("detail")
		l.Info("summary")

		Expect(terminal.String()).NotTo(ContainSubstring("detail"))
		Expect(terminal.String()).To(ContainSubstring("summary"))
		Expect(decodeLines(&file)).To(HaveLen(2))
	})

	It("keeps attributes and groups from With", func() {
		var buf bytes.Buffer
		l := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))
		l.With("component", "worker").WithGroup("job").Info("done", "id", 7)

		line := decodeLines(&buf)[0]
		Expect(line).To(HaveKeyWithValue("component", "worker"))
		Expect(line).To(HaveKeyWithValue("job", HaveKeyWithValue("id", BeNumerically("==", 7))))
	})

	It("still reaches later handlers when one fails", func() {
		var buf bytes.Buffer
		l := logger.Multi(slog.New(failingHandler{}), logger.New(logger.WithWriter(&buf)))
		l.Info("survives")
		Expect(buf.String()).To(ContainSubstring("survives"))
	})

	It("ignores nil loggers", func() {
		var buf bytes.Buffer
		logger.Multi(nil, logger.New(logger.WithWriter(&buf))).Info("ok")
		Expect(buf.String()).To(ContainSubstring("ok"))
	})
})

var _ = Describe("File", func() {
	It("appends JSON lines", func() {
		path := filepath.Join(GinkgoT().TempDir(), "memoir.log")
		for _, msg := range []string{"first", "second"} {
			l, closer, err := logger.File(path)
			Expect(err).NotTo(HaveOccurred())
			l.Info(msg)
			Expect(closer.Close()).To(Succeed())
		}

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		lines := decodeLines(bytes.NewBuffer(data))
		Expect(lines).To(HaveLen(2))
		Expect(lines[1]).To(HaveKeyWithValue("msg", "second"))
	})

	It("fails for an unwritable path", func() {
		_, _, err := logger.File(filepath.Join(GinkgoT().TempDir(), "missing", "memoir.log"))
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})
