package logscmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	logscmder "github.com/papercomputeco/memoir/cmd/memoir/logs"
)

var _ = Describe("FormatLine", func() {
	It("renders slog JSON records", func() {
		line := logscmder.FormatLine(`{"time":"2026-01-02T03:04:05.678Z","level":"INFO","msg":"starting memoir server","listen":":8081","workers":2}` + "\n")
		Expect(line).To(ContainSubstring("2026-01-02 03:04:05"))
		Expect(line).To(ContainSubstring("INFO"))
		Expect(line).To(ContainSubstring("starting memoir server"))
		Expect(line).To(ContainSubstring(":8081"))
		Expect(line).To(ContainSubstring("workers"))
		Expect(line).NotTo(ContainSubstring(`"msg"`))
	})

	It("passes through lines that are not JSON", func() {
		Expect(logscmder.FormatLine("plain text\n")).To(Equal("plain text"))
	})
})

var _ = Describe("logs command", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := logscmder.NewLogsCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--config-dir", dir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	It("explains a missing log", func() {
		Expect(run()).To(MatchError(ContainSubstring("has memoir serve been run")))
	})

	It("prints the last n lines", func() {
		content := "one\ntwo\nthree\npartial"
		Expect(os.WriteFile(filepath.Join(dir, "memoir.log"), []byte(content), 0o600)).To(Succeed())

		Expect(run("-n", "2", "--raw")).To(Succeed())
		Expect(out.String()).To(Equal("two\nthree\n"))
	})

	It("prints everything with -n 0", func() {
		Expect(os.WriteFile(filepath.Join(dir, "memoir.log"), []byte("a\nb\nc\n"), 0o600)).To(Succeed())

		Expect(run("-n", "0", "--raw")).To(Succeed())
		Expect(out.String()).To(Equal("a\nb\nc\n"))
	})
})
