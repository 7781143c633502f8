package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/llm/provider/openai"
)

var _ = Describe("Generator", func() {
	var (
		server   *httptest.Server
		received map[string]any
		auth     string
		reply    string
	)

	BeforeEach(func() {
		reply = `{"choices": [{"message": {"role": "assistant", "content": "{\"ok\": true}"}}]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	It("sends the key and the json response format", func() {
		g := openai.New(openai.WithBaseURL(server.URL), openai.WithAPIKey("sk-test"))

		out, err := g.Generate(context.Background(), llm.Request{Prompt: "hi", Format: llm.FormatJSON})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"ok": true}`))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(received).To(HaveKeyWithValue("model", openai.DefaultModel))
		Expect(received["response_format"]).To(HaveKeyWithValue("type", "json_object"))
	})

	It("omits the response format for plain text", func() {
		_, err := openai.New(openai.WithBaseURL(server.URL)).Generate(context.Background(), llm.Request{Prompt: "hi"})
		Expect(err).NotTo(HaveOccurred())
		Expect(received).NotTo(HaveKey("response_format"))
	})

	It("treats an empty choice list as unavailable", func() {
		reply = `{"choices": []}`
		_, err := openai.New(openai.WithBaseURL(server.URL)).Generate(context.Background(), llm.Request{Prompt: "hi"})
		Expect(errors.Is(err, llm.ErrUnavailable)).To(BeTrue())
	})

	It("surfaces an API error message", func() {
		reply = `{"error": {"message": "invalid api key"}}`
		_, err := openai.New(openai.WithBaseURL(server.URL)).Generate(context.Background(), llm.Request{Prompt: "hi"})
		Expect(err).To(MatchError(ContainSubstring("invalid api key")))
	})
})
