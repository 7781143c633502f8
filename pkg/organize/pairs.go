package organize

import "github.com/papercomputeco/memoir/pkg/llm/structured"

// DuplicatePair is two ids the backend considers the same fact.
type DuplicatePair struct {
	ID1    int64  `json:"id1"`
	ID2    int64  `json:"id2"`
	Reason string `json:"reason"`
}

// ConflictPair is two contradictory ids. NewerID is the side to keep.
type ConflictPair struct {
	ID1     int64  `json:"id1"`
	ID2     int64  `json:"id2"`
	NewerID int64  `json:"newer_id"`
	Reason  string `json:"reason"`
}

var duplicateSchema = structured.Array(structured.Object(map[string]*structured.Schema{
	"id1":    structured.Integer("1つ目のアイテムのID"),
	"id2":    structured.Integer("2つ目のアイテムのID"),
	"reason": structured.String("重複している理由"),
}, "id1", "id2"))

var conflictSchema = structured.Array(structured.Object(map[string]*structured.Schema{
	"id1":      structured.Integer("1つ目のアイテムのID"),
	"id2":      structured.Integer("2つ目のアイテムのID"),
	"newer_id": structured.Integer("新しい情報（残すべきもの）のID"),
	"reason":   structured.String("矛盾している理由"),
}, "id1", "id2", "newer_id"))

// claims tracks ids consumed by a merge or conflict resolution within one
// stage. The first pair to claim an id wins.
type claims map[int64]bool

// available reports whether a and b are distinct, both part of the batch and
// neither already consumed.
func (c claims) available(batch map[int64]record, a, b int64) bool {
	if a == b || c[a] || c[b] {
		return false
	}
	_, okA := batch[a]
	_, okB := batch[b]
	return okA && okB
}

func (c claims) take(ids ...int64) {
	for _, id := range ids {
		c[id] = true
	}
}
