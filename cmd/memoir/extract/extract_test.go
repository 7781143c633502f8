package extractcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	extractcmder "github.com/papercomputeco/memoir/cmd/memoir/extract"
)

var _ = Describe("extract command", func() {
	It("registers its flags", func() {
		cmd := extractcmder.NewExtractCmd()
		for _, name := range []string{"user", "assistant", "json", "provider", "model", "sqlite", "storage"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("user").Shorthand).To(Equal("u"))
	})

	It("requires a user message", func() {
		cmd := extractcmder.NewExtractCmd()
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.SetIn(bytes.NewBufferString("   \n"))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("a user message is required")))
	})
})
