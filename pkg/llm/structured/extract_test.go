package structured_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/llm/structured"
)

var _ = Describe("ExtractJSON", func() {
	DescribeTable("finds the payload",
		func(text, want string) {
			got, ok := structured.ExtractJSON(text)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("bare object", `{"a":1}`, `{"a":1}`),
		Entry("object after prose", "結果は次の通りです。\n{\"a\":1}\n以上です。", `{"a":1}`),
		Entry("json fence", "```json\n{\"a\":[1,2]}\n```", `{"a":[1,2]}`),
		Entry("plain fence", "説明\n```\n[{\"id1\":1}]\n```", `[{"id1":1}]`),
		Entry("fence wins over earlier braces", "{not json} ```json\n{\"b\":2}\n```", `{"b":2}`),
		Entry("brackets inside strings", `{"v":"a } ] { [","w":1} trailing }`, `{"v":"a } ] { [","w":1}`),
		Entry("escaped quotes", `{"v":"say \"}\" ok"}`, `{"v":"say \"}\" ok"}`),
		Entry("top-level array", `pairs: [{"id1":1,"id2":2}]`, `[{"id1":1,"id2":2}]`),
		Entry("skips an unbalanced opener", `[ oops {"a":1}`, `{"a":1}`),
	)

	It("reports when nothing is found", func() {
		_, ok := structured.ExtractJSON("JSONはありません")
		Expect(ok).To(BeFalse())
	})

	It("reports an unterminated object", func() {
		_, ok := structured.ExtractJSON(`{"a": 1`)
		Expect(ok).To(BeFalse())
	})
})
