package servecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/memoir/cmd/memoir/serve"
)

var _ = Describe("serve command", func() {
	It("registers the shared registry flags", func() {
		cmd := servecmder.NewServeCmd()
		for _, name := range []string{
			"listen", "workers", "queue-size", "max-items",
			"eventstream", "kafka-brokers", "kafka-topic",
			"provider", "model", "target", "timeout", "requests-per-minute",
			"storage", "sqlite", "postgres-dsn", "no-mcp",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("defaults from the built-in configuration", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8081"))
		Expect(cmd.Flags().Lookup("workers").DefValue).To(Equal("2"))
		Expect(cmd.Flags().Lookup("eventstream").DefValue).To(Equal("none"))
	})
})
