package memory

import (
	"context"
	"fmt"
	"strings"
)

// DefaultRecentEpisodes is how many recent episodes a profile carries.
const DefaultRecentEpisodes = 20

// EmptyProfileText is rendered when nothing has been stored yet.
const EmptyProfileText = "（保存された情報はありません）"

// Profile is the snapshot of the user injected into assistant context.
type Profile struct {
	Attributes []Attribute `json:"attributes"`
	Episodes   []Episode   `json:"memories"`
	Goals      []Goal      `json:"goals"`
	Requests   []Request   `json:"requests"`
}

// LoadProfile reads every attribute, the most recent episodes, active goals
// by priority and active requests. Episodes read this way count as accessed.
func LoadProfile(ctx context.Context, store Store, recent int) (*Profile, error) {
	if recent <= 0 {
		recent = DefaultRecentEpisodes
	}

	attrs, err := store.ListAttributes(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing attributes: %w", err)
	}

	episodes, err := store.ListEpisodes(ctx, ListOptions{Order: OrderRecent, Limit: recent})
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}
	for _, ep := range episodes {
		if err := store.IncrementAccess(ctx, ep.ID); err != nil {
			return nil, fmt.Errorf("recording episode access: %w", err)
		}
	}

	goals, err := store.ListGoals(ctx, ListOptions{Status: GoalActive, Order: OrderPriority})
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}

	requests, err := store.ListRequests(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	return &Profile{
		Attributes: attrs,
		Episodes:   episodes,
		Goals:      goals,
		Requests:   requests,
	}, nil
}

// IsEmpty reports whether the profile holds no records at all.
func (p *Profile) IsEmpty() bool {
	return len(p.Attributes) == 0 && len(p.Episodes) == 0 && len(p.Goals) == 0 && len(p.Requests) == 0
}

// Format renders the profile as the sectioned plain text used in system
// prompts. Higher priority goals get more stars.
func (p *Profile) Format() string {
	if p == nil || p.IsEmpty() {
		return EmptyProfileText
	}

	var b strings.Builder
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		b.WriteString(title)
		b.WriteByte('\n')
		for _, l := range lines {
			b.WriteString("- ")
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	lines := make([]string, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		lines = append(lines, a.Name+": "+a.Value)
	}
	section("【ユーザーの属性】", lines)

	lines = lines[:0]
	for _, e := range p.Episodes {
		lines = append(lines, e.Content)
	}
	section("【ユーザーの記憶】", lines)

	lines = lines[:0]
	for _, g := range p.Goals {
		lines = append(lines, g.Content+" "+PriorityStars(g.Priority))
	}
	section("【ユーザーの目標】", lines)

	lines = lines[:0]
	for _, r := range p.Requests {
		lines = append(lines, r.Content)
	}
	section("【アシスタントへのお願い】", lines)

	return strings.TrimRight(b.String(), "\n")
}

// PriorityStars renders priority 1 as ten stars down to priority 10 as one.
func PriorityStars(priority int) string {
	return strings.Repeat("★", 11-ClampPriority(priority))
}
