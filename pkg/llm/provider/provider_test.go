package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/credentials"
	"github.com/papercomputeco/memoir/pkg/llm/provider"
)

var _ = Describe("New", func() {
	BeforeEach(func() {
		for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
			GinkgoT().Setenv(env, "")
		}
	})

	It("defaults to ollama", func() {
		g, err := provider.New(provider.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(Equal("ollama/llama3.1:8b"))
	})

	It("uses an explicit key", func() {
		g, err := provider.New(provider.Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(Equal("openai/gpt-4o"))
	})

	It("resolves the key from the environment", func() {
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
		g, err := provider.New(provider.Config{Provider: "Anthropic"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(HavePrefix("anthropic/"))
	})

	It("resolves the key from stored credentials", func() {
		mgr, err := credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetKey("gemini", "stored-key")).To(Succeed())

		g, err := provider.New(provider.Config{Provider: "gemini", Credentials: mgr})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(Equal("gemini/gemini-2.0-flash"))
	})

	It("falls back to ollama without a key", func() {
		g, err := provider.New(provider.Config{Provider: "openai", Model: "gpt-4o"})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(Equal("ollama/llama3.1:8b"))
	})

	It("keeps the backend identifiable behind a rate limit", func() {
		g, err := provider.New(provider.Config{Provider: "ollama", Model: "qwen2.5:7b", RequestsPerMinute: 30})
		Expect(err).NotTo(HaveOccurred())
		Expect(provider.Name(g)).To(Equal("ollama/qwen2.5:7b"))
	})

	It("rejects an unknown provider", func() {
		_, err := provider.New(provider.Config{Provider: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})
})
