package memoircmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memoircmder "github.com/papercomputeco/memoir/cmd/memoir"
)

var _ = Describe("NewMemoirCmd", func() {
	It("wires every subcommand", func() {
		cmd := memoircmder.NewMemoirCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "chat", "extract", "organize", "show", "config", "auth", "logs", "version"))
	})

	It("has global debug and config-dir flags", func() {
		cmd := memoircmder.NewMemoirCmd()
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("passes the config dir down to subcommands", func() {
		dir := GinkgoT().TempDir()
		cmd := memoircmder.NewMemoirCmd()
		cmd.SetArgs([]string{"config", "set", "generation.model", "qwen3:8b", "--config-dir", dir})
		Expect(cmd.Execute()).To(Succeed())
		Expect(dir + "/config.toml").To(BeAnExistingFile())
	})
})
