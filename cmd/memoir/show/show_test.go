package showcmder_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	showcmder "github.com/papercomputeco/memoir/cmd/memoir/show"
	"github.com/papercomputeco/memoir/pkg/memory"
)

var _ = Describe("Markdown", func() {
	It("renders the empty profile notice", func() {
		Expect(showcmder.Markdown(&memory.Profile{})).To(ContainSubstring(memory.EmptyProfileText))
	})

	It("renders every section with record ids", func() {
		now := time.Now()
		p := &memory.Profile{
			Attributes: []memory.Attribute{{ID: 1, Name: "名前", Value: "田中|太郎"}},
			Episodes: []memory.Episode{
				{ID: 2, Content: "京都に旅行した", Category: memory.EpisodeEvent, Active: true, AccessCount: 3},
				{ID: 3, Content: "古い話", Category: memory.EpisodeEvent, Active: false},
			},
			Goals: []memory.Goal{
				{ID: 4, Content: "英語を勉強する", Status: memory.GoalActive, Priority: 1},
				{ID: 5, Content: "引っ越す", Status: memory.GoalCompleted, Priority: 10, CompletedAt: &now},
			},
			Requests: []memory.Request{{ID: 6, Content: "敬語で話して", Category: memory.RequestTone, Active: true}},
		}

		md := showcmder.Markdown(p)
		Expect(md).To(ContainSubstring("## Attributes"))
		Expect(md).To(ContainSubstring(`| 1 | 名前 | 田中\|太郎 |`))
		Expect(md).To(ContainSubstring("`#2` **event** 京都に旅行した _(accessed 3, level 0)_"))
		Expect(md).To(ContainSubstring("`#3` **event** 古い話 _(inactive)_"))
		Expect(md).To(ContainSubstring("`#4` 英語を勉強する ★★★★★★★★★★\n"))
		Expect(md).To(ContainSubstring("`#5` 引っ越す ★ _(completed)_"))
		Expect(md).To(ContainSubstring("`#6` **tone** 敬語で話して\n"))
	})

	It("omits empty sections", func() {
		md := showcmder.Markdown(&memory.Profile{Goals: []memory.Goal{{ID: 1, Content: "走る", Status: memory.GoalActive, Priority: 5}}})
		Expect(md).To(ContainSubstring("## Goals"))
		Expect(md).NotTo(ContainSubstring("## Attributes"))
		Expect(md).NotTo(ContainSubstring("## Requests"))
	})
})
