package extract

import (
	"github.com/papercomputeco/memoir/pkg/llm/structured"
	"github.com/papercomputeco/memoir/pkg/memory"
)

type AttributeCandidate struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type EpisodeCandidate struct {
	Content  string             `json:"content"`
	Category memory.EpisodeKind `json:"category"`
}

type GoalCandidate struct {
	Content  string `json:"content"`
	Priority int    `json:"priority"`
}

type RequestCandidate struct {
	Content  string             `json:"content"`
	Category memory.RequestKind `json:"category"`
}

// Candidates is the typed output of one extraction call.
type Candidates struct {
	Attributes []AttributeCandidate `json:"attributes"`
	Memories   []EpisodeCandidate   `json:"memories"`
	Goals      []GoalCandidate      `json:"goals"`
	Requests   []RequestCandidate   `json:"requests"`
}

func (c Candidates) Len() int {
	return len(c.Attributes) + len(c.Memories) + len(c.Goals) + len(c.Requests)
}

// Counts is the number of records saved per category.
type Counts struct {
	Attributes int `json:"attributes"`
	Memories   int `json:"memories"`
	Goals      int `json:"goals"`
	Requests   int `json:"requests"`
}

func (c Counts) Total() int {
	return c.Attributes + c.Memories + c.Goals + c.Requests
}

func episodeKindNames() []string {
	out := make([]string, len(memory.EpisodeKinds))
	for i, k := range memory.EpisodeKinds {
		out[i] = string(k)
	}
	return out
}

func requestKindNames() []string {
	out := make([]string, len(memory.RequestKinds))
	for i, k := range memory.RequestKinds {
		out[i] = string(k)
	}
	return out
}

var candidatesSchema = structured.Object(map[string]*structured.Schema{
	"attributes": structured.Array(structured.Object(map[string]*structured.Schema{
		"name":  structured.String("属性名（例: 名前、年齢、職業、住所、趣味など）"),
		"value": structured.String("属性値"),
	}, "name", "value")),
	"memories": structured.Array(structured.Object(map[string]*structured.Schema{
		"content":  structured.String("記憶の内容"),
		"category": structured.Enum("記憶のカテゴリ（general/preference/event/knowledge）", episodeKindNames()...),
	}, "content")),
	"goals": structured.Array(structured.Object(map[string]*structured.Schema{
		"content":  structured.String("目標の内容"),
		"priority": structured.IntRange("優先度（1-10、デフォルト5）", memory.MinGoalPriority, memory.MaxGoalPriority),
	}, "content")),
	"requests": structured.Array(structured.Object(map[string]*structured.Schema{
		"content":  structured.String("お願いの内容"),
		"category": structured.Enum("お願いのカテゴリ（tone/behavior/format/general）", requestKindNames()...),
	}, "content")),
})

// applyDefaults fills omitted item fields the way the schema documents them.
func (c *Candidates) applyDefaults() {
	for i := range c.Memories {
		if c.Memories[i].Category == "" {
			c.Memories[i].Category = memory.EpisodeGeneral
		}
	}
	for i := range c.Goals {
		if c.Goals[i].Priority == 0 {
			c.Goals[i].Priority = memory.DefaultGoalPriority
		}
	}
	for i := range c.Requests {
		if c.Requests[i].Category == "" {
			c.Requests[i].Category = memory.RequestGeneral
		}
	}
}
