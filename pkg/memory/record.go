package memory

import (
	"strings"
	"time"
)

// Category identifies one of the four record tables.
type Category string

const (
	CategoryAttributes Category = "attributes"
	CategoryEpisodes   Category = "episodes"
	CategoryGoals      Category = "goals"
	CategoryRequests   Category = "requests"
)

// Categories lists every record category in organization order.
var Categories = []Category{CategoryAttributes, CategoryEpisodes, CategoryGoals, CategoryRequests}

// ParseCategory resolves a user-supplied table name. "memories" is accepted
// as an alias for episodes.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attributes", "attribute":
		return CategoryAttributes, nil
	case "episodes", "episode", "memories", "memory":
		return CategoryEpisodes, nil
	case "goals", "goal":
		return CategoryGoals, nil
	case "requests", "request":
		return CategoryRequests, nil
	default:
		return "", &ValidationError{Field: "category", Value: s}
	}
}

// EpisodeKind is the closed category enum of an episodic memory.
type EpisodeKind string

const (
	EpisodeGeneral    EpisodeKind = "general"
	EpisodePreference EpisodeKind = "preference"
	EpisodeEvent      EpisodeKind = "event"
	EpisodeKnowledge  EpisodeKind = "knowledge"
)

// EpisodeKinds lists the allowed episode categories.
var EpisodeKinds = []EpisodeKind{EpisodeGeneral, EpisodePreference, EpisodeEvent, EpisodeKnowledge}

// NormalizeEpisodeKind maps unknown or empty values to general.
func NormalizeEpisodeKind(s string) EpisodeKind {
	for _, k := range EpisodeKinds {
		if string(k) == s {
			return k
		}
	}
	return EpisodeGeneral
}

// RequestKind is the closed category enum of an assistant request.
type RequestKind string

const (
	RequestTone     RequestKind = "tone"
	RequestBehavior RequestKind = "behavior"
	RequestFormat   RequestKind = "format"
	RequestGeneral  RequestKind = "general"
)

// RequestKinds lists the allowed request categories.
var RequestKinds = []RequestKind{RequestTone, RequestBehavior, RequestFormat, RequestGeneral}

// NormalizeRequestKind maps unknown or empty values to general.
func NormalizeRequestKind(s string) RequestKind {
	for _, k := range RequestKinds {
		if string(k) == s {
			return k
		}
	}
	return RequestGeneral
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// ParseGoalStatus validates a goal status string.
func ParseGoalStatus(s string) (GoalStatus, error) {
	switch GoalStatus(s) {
	case GoalActive, GoalCompleted, GoalCancelled:
		return GoalStatus(s), nil
	default:
		return "", &ValidationError{Field: "status", Value: s}
	}
}

const (
	// DefaultGoalPriority is used when a goal is created without a priority.
	DefaultGoalPriority = 5

	MinGoalPriority = 1
	MaxGoalPriority = 10

	// MaxCompressionLevel is the most aggressive compression an episode can reach.
	MaxCompressionLevel = 3
)

// ClampPriority pins p into [1,10]. Zero means "unset" and yields the default.
func ClampPriority(p int) int {
	switch {
	case p == 0:
		return DefaultGoalPriority
	case p < MinGoalPriority:
		return MinGoalPriority
	case p > MaxGoalPriority:
		return MaxGoalPriority
	default:
		return p
	}
}

// Attribute is a named single-valued fact about the user.
type Attribute struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Value            string    `json:"value"`
	CompressionLevel int       `json:"compression_level"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Episode is a free-text memory of an event, preference or piece of knowledge.
type Episode struct {
	ID               int64       `json:"id"`
	Content          string      `json:"content"`
	Category         EpisodeKind `json:"category"`
	Active           bool        `json:"active"`
	AccessCount      int         `json:"access_count"`
	CompressionLevel int         `json:"compression_level"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	LastAccessed     *time.Time  `json:"last_accessed,omitempty"`
}

// Goal is a user-stated objective.
type Goal struct {
	ID               int64      `json:"id"`
	Content          string     `json:"content"`
	Status           GoalStatus `json:"status"`
	Priority         int        `json:"priority"`
	CompressionLevel int        `json:"compression_level"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Request is an instruction about how the assistant should behave.
type Request struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	Category  RequestKind `json:"category"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
