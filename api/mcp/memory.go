package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memoir/pkg/memory"
)

const defaultMemoriesLimit = 10

var (
	contextToolName    = "get_user_context"
	contextDescription = "ユーザーの全コンテキスト（属性、記憶、目標、お願い）を一括取得します"

	attributesToolName    = "get_user_attributes"
	attributesDescription = "ユーザーの属性（名前、年齢、職業など）を取得します"

	memoriesToolName    = "get_user_memories"
	memoriesDescription = "ユーザーの記憶を取得します"

	goalsToolName    = "get_user_goals"
	goalsDescription = "ユーザーの目標を取得します"

	requestsToolName    = "get_assistant_requests"
	requestsDescription = "アシスタントへのお願いを取得します"
)

// AttributeItem is an attribute trimmed to what an assistant needs.
type AttributeItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MemoryItem is an episode trimmed to what an assistant needs.
type MemoryItem struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// GoalItem is a goal trimmed to what an assistant needs.
type GoalItem struct {
	Content  string `json:"content"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
}

// RequestItem is a request trimmed to what an assistant needs.
type RequestItem struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

type ContextInput struct{}

// ContextOutput is the whole profile plus its rendered prompt text.
type ContextOutput struct {
	Attributes []AttributeItem `json:"attributes"`
	Memories   []MemoryItem    `json:"memories"`
	Goals      []GoalItem      `json:"goals"`
	Requests   []RequestItem   `json:"requests"`
	Text       string          `json:"text"`
}

type AttributesInput struct{}

type AttributesOutput struct {
	Attributes []AttributeItem `json:"attributes"`
}

type MemoriesInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"取得する記憶の最大数（デフォルト: 10）"`
	Category string `json:"category,omitempty" jsonschema:"カテゴリでフィルタリング（general, preference, event, knowledge）"`
}

type MemoriesOutput struct {
	Memories []MemoryItem `json:"memories"`
}

type GoalsInput struct {
	IncludeCompleted bool `json:"include_completed,omitempty" jsonschema:"完了した目標も含めるか（デフォルト: false）"`
}

type GoalsOutput struct {
	Goals []GoalItem `json:"goals"`
}

type RequestsInput struct{}

type RequestsOutput struct {
	Requests []RequestItem `json:"requests"`
}

func (s *Server) handleContext(ctx context.Context, _ *mcp.CallToolRequest, _ ContextInput) (*mcp.CallToolResult, ContextOutput, error) {
	profile, err := memory.LoadProfile(ctx, s.config.Store, s.config.RecentEpisodes)
	if err != nil {
		return s.failure("Loading user context failed", err), emptyContext(), nil
	}

	output := ContextOutput{
		Attributes: attributeItems(profile.Attributes),
		Memories:   memoryItems(profile.Episodes),
		Goals:      goalItems(profile.Goals),
		Requests:   requestItems(profile.Requests),
		Text:       profile.Format(),
	}
	return s.success(output), output, nil
}

func (s *Server) handleAttributes(ctx context.Context, _ *mcp.CallToolRequest, _ AttributesInput) (*mcp.CallToolResult, AttributesOutput, error) {
	attrs, err := s.config.Store.ListAttributes(ctx, memory.ListOptions{})
	if err != nil {
		return s.failure("Listing attributes failed", err), AttributesOutput{Attributes: attributeItems(nil)}, nil
	}

	output := AttributesOutput{Attributes: attributeItems(attrs)}
	return s.success(output), output, nil
}

func (s *Server) handleMemories(ctx context.Context, _ *mcp.CallToolRequest, input MemoriesInput) (*mcp.CallToolResult, MemoriesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultMemoriesLimit
	}

	opts := memory.ListOptions{Order: memory.OrderRecent, Limit: limit}
	if input.Category != "" {
		opts.Kind = string(memory.NormalizeEpisodeKind(input.Category))
	}

	s.config.Logger.Debug("MCP memories request", "limit", limit, "category", opts.Kind)

	episodes, err := s.config.Store.ListEpisodes(ctx, opts)
	if err != nil {
		return s.failure("Listing memories failed", err), MemoriesOutput{Memories: memoryItems(nil)}, nil
	}

	output := MemoriesOutput{Memories: memoryItems(episodes)}
	return s.success(output), output, nil
}

func (s *Server) handleGoals(ctx context.Context, _ *mcp.CallToolRequest, input GoalsInput) (*mcp.CallToolResult, GoalsOutput, error) {
	opts := memory.ListOptions{Status: memory.GoalActive, Order: memory.OrderPriority}
	if input.IncludeCompleted {
		opts = memory.ListOptions{IncludeInactive: true, Order: memory.OrderPriority}
	}

	goals, err := s.config.Store.ListGoals(ctx, opts)
	if err != nil {
		return s.failure("Listing goals failed", err), GoalsOutput{Goals: goalItems(nil)}, nil
	}

	output := GoalsOutput{Goals: goalItems(goals)}
	return s.success(output), output, nil
}

func (s *Server) handleRequests(ctx context.Context, _ *mcp.CallToolRequest, _ RequestsInput) (*mcp.CallToolResult, RequestsOutput, error) {
	requests, err := s.config.Store.ListRequests(ctx, memory.ListOptions{})
	if err != nil {
		return s.failure("Listing requests failed", err), RequestsOutput{Requests: requestItems(nil)}, nil
	}

	output := RequestsOutput{Requests: requestItems(requests)}
	return s.success(output), output, nil
}

// success serializes output into a text block alongside the structured
// content, for clients that only read text.
func (s *Server) success(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return s.failure("Failed to serialize results", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func (s *Server) failure(msg string, err error) *mcp.CallToolResult {
	s.config.Logger.Error("MCP tool failed", "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", msg, err)},
		},
	}
}

// emptyContext is the output sent with a failure result. The SDK validates
// it against the output schema, so every list must be non-nil.
func emptyContext() ContextOutput {
	return ContextOutput{
		Attributes: attributeItems(nil),
		Memories:   memoryItems(nil),
		Goals:      goalItems(nil),
		Requests:   requestItems(nil),
	}
}

func attributeItems(in []memory.Attribute) []AttributeItem {
	out := make([]AttributeItem, 0, len(in))
	for _, a := range in {
		out = append(out, AttributeItem{Name: a.Name, Value: a.Value})
	}
	return out
}

func memoryItems(in []memory.Episode) []MemoryItem {
	out := make([]MemoryItem, 0, len(in))
	for _, e := range in {
		out = append(out, MemoryItem{Content: e.Content, Category: string(e.Category)})
	}
	return out
}

func goalItems(in []memory.Goal) []GoalItem {
	out := make([]GoalItem, 0, len(in))
	for _, g := range in {
		out = append(out, GoalItem{Content: g.Content, Status: string(g.Status), Priority: g.Priority})
	}
	return out
}

func requestItems(in []memory.Request) []RequestItem {
	out := make([]RequestItem, 0, len(in))
	for _, r := range in {
		out = append(out, RequestItem{Content: r.Content, Category: string(r.Category)})
	}
	return out
}
