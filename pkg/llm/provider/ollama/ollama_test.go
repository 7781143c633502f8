package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/llm/provider/ollama"
)

var _ = Describe("Generator", func() {
	var (
		server   *httptest.Server
		received map[string]any
		status   int
		reply    string
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		reply = `{"message": {"role": "assistant", "content": "こんにちは"}, "done": true}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	It("posts a non-streaming chat request", func() {
		g := ollama.New(ollama.WithBaseURL(server.URL+"/"), ollama.WithModel("qwen2.5:7b"), ollama.WithTemperature(0.2))

		out, err := g.Generate(context.Background(), llm.Request{System: "sys", Prompt: "hi", Format: llm.FormatJSON})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("こんにちは"))

		Expect(received).To(HaveKeyWithValue("model", "qwen2.5:7b"))
		Expect(received).To(HaveKeyWithValue("stream", false))
		Expect(received).To(HaveKeyWithValue("format", "json"))
		Expect(received["messages"]).To(HaveLen(2))
		Expect(received["options"]).To(HaveKeyWithValue("temperature", 0.2))
	})

	It("reports a server error as unavailable", func() {
		status = http.StatusInternalServerError
		reply = `{"error": "model not loaded"}`

		_, err := ollama.New(ollama.WithBaseURL(server.URL)).Generate(context.Background(), llm.Request{Prompt: "hi"})
		Expect(errors.Is(err, llm.ErrUnavailable)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("500"))
	})

	It("reports an unreachable server as unavailable", func() {
		url := server.URL
		server.Close()

		_, err := ollama.New(ollama.WithBaseURL(url)).Generate(context.Background(), llm.Request{Prompt: "hi"})
		Expect(errors.Is(err, llm.ErrUnavailable)).To(BeTrue())
	})
})
