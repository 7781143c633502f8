package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/eventstream"
)

var _ = Describe("Event", func() {
	source := eventstream.EventSource{Service: "memoir", Hostname: "host-a"}

	It("marshals ProgressEvent with flattened envelope keys", func() {
		event := eventstream.NewProgressEvent(source, "run-1", eventstream.ProgressPayload{
			Step:        "attributes",
			StepDisplay: "ステップ 1/4: 属性",
			Status:      "started",
			Message:     "属性の整理を開始します",
			Current:     1,
			Total:       4,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("schema_version", BeNumerically("==", eventstream.SchemaVersionV1)))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeOrganizeProgress))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("run_id", "run-1"))
		Expect(got["progress"]).To(HaveKeyWithValue("step_display", "ステップ 1/4: 属性"))
	})

	It("assigns unique ids", func() {
		a := eventstream.NewTurnExtractedEvent(source, eventstream.ExtractedCounts{}, time.Second)
		b := eventstream.NewTurnExtractedEvent(source, eventstream.ExtractedCounts{}, time.Second)
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.DurationMs).To(BeEquivalentTo(1000))
		Expect(a.Key()).To(Equal(eventstream.EventTypeTurnExtracted))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeOrganizeProgress).To(Equal("memoir.organize.progress"))
		Expect(eventstream.EventTypeTurnExtracted).To(Equal("memoir.turn.extracted"))
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
