package llm_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/llm"
)

var _ = Describe("ChatMessages", func() {
	It("orders system, history and prompt", func() {
		msgs := llm.ChatMessages(llm.Request{
			System:  "あなたはアシスタントです",
			History: []llm.Message{{Role: llm.RoleUser, Content: "こんにちは"}, {Role: llm.RoleAssistant, Content: "こんにちは！"}},
			Prompt:  "元気？",
		})
		Expect(msgs).To(HaveLen(4))
		Expect(msgs[0].Role).To(Equal(llm.RoleSystem))
		Expect(msgs[3]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "元気？"}))
	})

	It("omits an empty system prompt", func() {
		msgs := llm.ChatMessages(llm.Request{Prompt: "hi"})
		Expect(msgs).To(Equal([]llm.Message{{Role: llm.RoleUser, Content: "hi"}}))
	})
})

var _ = Describe("Unavailable", func() {
	It("keeps both the sentinel and the cause", func() {
		cause := errors.New("connection refused")
		err := llm.Unavailable("ollama", cause)
		Expect(errors.Is(err, llm.ErrUnavailable)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("ollama"))
	})
})

var _ = Describe("NewLimited", func() {
	echo := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		return req.Prompt, nil
	})

	It("returns the generator unchanged without a limit", func() {
		Expect(llm.NewLimited(echo, 0)).NotTo(BeAssignableToTypeOf(&llm.Limited{}))
	})

	It("passes calls through", func() {
		g := llm.NewLimited(echo, 600)
		Expect(g.Generate(context.Background(), llm.Request{Prompt: "a"})).To(Equal("a"))
	})

	It("gives up when the context expires while waiting", func() {
		g := llm.NewLimited(echo, 1)
		_, err := g.Generate(context.Background(), llm.Request{Prompt: "first"})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = g.Generate(ctx, llm.Request{Prompt: "second"})
		Expect(err).To(HaveOccurred())
	})
})
