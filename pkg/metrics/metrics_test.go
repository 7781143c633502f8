package metrics_test

import (
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/memoir/pkg/metrics"
)

var _ = Describe("Recorder", func() {
	It("counts extraction outcomes and saved records", func() {
		r := metrics.New()
		r.Extraction(metrics.ExtractionOK)
		r.Extraction(metrics.ExtractionDegraded)
		r.Saved("attributes", 2)
		r.Saved("goals", 0)

		n, err := testutil.GatherAndCount(r.Registry(), "memoir_extractions_total", "memoir_candidates_saved_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
	})

	It("serves the exposition format", func() {
		r := metrics.New()
		r.OrganizeRun("ok", 3*time.Second)
		r.OrganizeChange("episodes", metrics.ActionCompressed, 1)
		r.SetInFlight(2)

		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)

		Expect(string(body)).To(ContainSubstring(`memoir_organize_changes_total{action="compressed",category="episodes"} 1`))
		Expect(string(body)).To(ContainSubstring("memoir_extraction_jobs_in_flight 2"))
		Expect(string(body)).To(ContainSubstring("memoir_organize_duration_seconds_count 1"))
	})

	It("is a no-op on a nil recorder", func() {
		var r *metrics.Recorder
		Expect(func() {
			r.Extraction(metrics.ExtractionError)
			r.GenerationFailure("parse")
			r.JobDropped()
			r.OrganizeRun("error", time.Second)
		}).NotTo(Panic())
		Expect(r.Handler()).NotTo(BeNil())
	})
})
