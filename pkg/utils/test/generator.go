package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/memoir/pkg/llm"
)

// ReasoningMarker appears only in the first stage of a two-stage structured
// call, so rules can target or skip it.
const ReasoningMarker = "あなたの思考プロセスを詳しく説明してください。"

// Rule answers any prompt containing Contains. A zero Times matches forever.
type Rule struct {
	Contains string
	Reply    string
	Err      error
	Times    int
}

// MockGenerator is a scripted llm.Generator. Rules are checked in order and
// the first match wins. Unmatched prompts get Default.
type MockGenerator struct {
	mu      sync.Mutex
	rules   []*Rule
	Default string
	calls   []llm.Request
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Default: "考えました。"}
}

// On replies with reply to prompts containing contains.
func (m *MockGenerator) On(contains, reply string) *MockGenerator {
	return m.Add(Rule{Contains: contains, Reply: reply})
}

// Once is On limited to a single match.
func (m *MockGenerator) Once(contains, reply string) *MockGenerator {
	return m.Add(Rule{Contains: contains, Reply: reply, Times: 1})
}

// FailOn returns err for prompts containing contains.
func (m *MockGenerator) FailOn(contains string, err error) *MockGenerator {
	return m.Add(Rule{Contains: contains, Err: err})
}

func (m *MockGenerator) Add(r Rule) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, &r)
	return m
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, r := range m.rules {
		if r.Times < 0 || !strings.Contains(req.Prompt, r.Contains) {
			continue
		}
		if r.Times > 0 {
			r.Times--
			if r.Times == 0 {
				r.Times = -1
			}
		}
		if r.Err != nil {
			return "", r.Err
		}
		return r.Reply, nil
	}

	return m.Default, nil
}

// Calls returns every request received, oldest first.
func (m *MockGenerator) Calls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]llm.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsContaining counts prompts containing s.
func (m *MockGenerator) CallsContaining(s string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if strings.Contains(c.Prompt, s) {
			n++
		}
	}
	return n
}
