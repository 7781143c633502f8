package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/memory"
)

var _ = Describe("ParseCategory", func() {
	DescribeTable("resolves names and aliases",
		func(in string, want memory.Category) {
			got, err := memory.ParseCategory(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("attributes", "attributes", memory.CategoryAttributes),
		Entry("memories alias", "memories", memory.CategoryEpisodes),
		Entry("singular", "goal", memory.CategoryGoals),
		Entry("mixed case", " Requests ", memory.CategoryRequests),
	)

	It("rejects unknown tables as a validation error", func() {
		_, err := memory.ParseCategory("users; DROP TABLE goals")
		Expect(memory.IsValidationError(err)).To(BeTrue())
	})
})

var _ = Describe("kind normalization", func() {
	It("maps unknown episode kinds to general", func() {
		Expect(memory.NormalizeEpisodeKind("event")).To(Equal(memory.EpisodeEvent))
		Expect(memory.NormalizeEpisodeKind("")).To(Equal(memory.EpisodeGeneral))
		Expect(memory.NormalizeEpisodeKind("hobby")).To(Equal(memory.EpisodeGeneral))
	})

	It("maps unknown request kinds to general", func() {
		Expect(memory.NormalizeRequestKind("tone")).To(Equal(memory.RequestTone))
		Expect(memory.NormalizeRequestKind("style")).To(Equal(memory.RequestGeneral))
	})
})

var _ = Describe("ParseGoalStatus", func() {
	It("accepts the lifecycle states", func() {
		for _, s := range []string{"active", "completed", "cancelled"} {
			got, err := memory.ParseGoalStatus(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(got)).To(Equal(s))
		}
	})

	It("rejects anything else", func() {
		_, err := memory.ParseGoalStatus("done")
		Expect(memory.IsValidationError(err)).To(BeTrue())
	})
})

var _ = DescribeTable("ClampPriority",
	func(in, want int) {
		Expect(memory.ClampPriority(in)).To(Equal(want))
	},
	Entry("unset", 0, memory.DefaultGoalPriority),
	Entry("below range", -3, 1),
	Entry("in range", 7, 7),
	Entry("above range", 42, 10),
)

var _ = Describe("compression levels", func() {
	It("allows only tables carrying the column", func() {
		for _, t := range []string{"attributes", "episodes", "memories", "goals"} {
			_, err := memory.CompressionTable(t)
			Expect(err).NotTo(HaveOccurred(), t)
		}
		_, err := memory.CompressionTable("requests")
		Expect(memory.IsValidationError(err)).To(BeTrue())
	})

	It("never decreases", func() {
		Expect(memory.CheckCompressionTransition(1, 2)).To(Succeed())
		Expect(memory.CheckCompressionTransition(2, 2)).To(Succeed())
		Expect(memory.CheckCompressionTransition(2, 1)).To(MatchError(memory.ErrCompressionRegression))
	})

	It("stays within range", func() {
		Expect(memory.IsValidationError(memory.CheckCompressionTransition(0, 4))).To(BeTrue())
		Expect(memory.IsValidationError(memory.ValidateCompressionLevel(-1))).To(BeTrue())
	})
})
