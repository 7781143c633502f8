// Package storetest holds the behavioral contract every memory.Store
// implementation is tested against.
package storetest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// DescribeStore registers the shared store specs. newStore is called before
// every test and the returned store is closed afterwards.
func DescribeStore(name string, newStore func() memory.Store) bool {
	return Describe(name+" store contract", func() {
		var (
			store memory.Store
			ctx   context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = newStore()
		})

		AfterEach(func() {
			Expect(store.Close()).To(Succeed())
		})

		Describe("attributes", func() {
			It("upserts by name and returns the same id", func() {
				id1, err := store.AddAttribute(ctx, "年齢", "25歳")
				Expect(err).NotTo(HaveOccurred())
				id2, err := store.AddAttribute(ctx, "年齢", "26歳")
				Expect(err).NotTo(HaveOccurred())
				Expect(id2).To(Equal(id1))

				attrs, err := store.ListAttributes(ctx, memory.ListOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(attrs).To(HaveLen(1))
				Expect(attrs[0].Name).To(Equal("年齢"))
				Expect(attrs[0].Value).To(Equal("26歳"))
			})

			It("updates and hard deletes", func() {
				id, err := store.AddAttribute(ctx, "住所", "東京")
				Expect(err).NotTo(HaveOccurred())

				value := "東京都渋谷区"
				Expect(store.UpdateAttribute(ctx, id, memory.AttributePatch{Value: &value})).To(Succeed())

				a, err := store.GetAttribute(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(a.Value).To(Equal(value))
				Expect(a.UpdatedAt).NotTo(BeTemporally("<", a.CreatedAt))

				Expect(store.DeleteAttribute(ctx, id)).To(Succeed())
				_, err = store.GetAttribute(ctx, id)
				Expect(err).To(MatchError(memory.ErrNotFound))
			})

			It("reports missing rows as not found", func() {
				value := "x"
				err := store.UpdateAttribute(ctx, 999, memory.AttributePatch{Value: &value})
				Expect(errors.Is(err, memory.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(store.DeleteAttribute(ctx, 999), memory.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("episodes", func() {
			It("soft deletes by default and hides inactive rows", func() {
				id, err := store.AddEpisode(ctx, "カレーが好き", memory.EpisodePreference)
				Expect(err).NotTo(HaveOccurred())
				_, err = store.AddEpisode(ctx, "猫を飼っている", memory.EpisodeGeneral)
				Expect(err).NotTo(HaveOccurred())

				Expect(store.DeleteEpisode(ctx, id, false)).To(Succeed())

				active, err := store.ListEpisodes(ctx, memory.ListOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(active).To(HaveLen(1))

				all, err := store.ListEpisodes(ctx, memory.ListOptions{IncludeInactive: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(2))

				e, err := store.GetEpisode(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Active).To(BeFalse())
			})

			It("hard deletes on request", func() {
				id, err := store.AddEpisode(ctx, "旅行に行った", memory.EpisodeEvent)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.DeleteEpisode(ctx, id, true)).To(Succeed())
				_, err = store.GetEpisode(ctx, id)
				Expect(err).To(MatchError(memory.ErrNotFound))
			})

			It("normalizes unknown categories to general", func() {
				id, err := store.AddEpisode(ctx, "何か", memory.EpisodeKind("unknown"))
				Expect(err).NotTo(HaveOccurred())
				e, err := store.GetEpisode(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Category).To(Equal(memory.EpisodeGeneral))
			})

			It("filters by category", func() {
				_, err := store.AddEpisode(ctx, "寿司が好き", memory.EpisodePreference)
				Expect(err).NotTo(HaveOccurred())
				_, err = store.AddEpisode(ctx, "昨日映画を観た", memory.EpisodeEvent)
				Expect(err).NotTo(HaveOccurred())

				prefs, err := store.ListEpisodes(ctx, memory.ListOptions{Kind: string(memory.EpisodePreference)})
				Expect(err).NotTo(HaveOccurred())
				Expect(prefs).To(HaveLen(1))
				Expect(prefs[0].Content).To(Equal("寿司が好き"))
			})

			It("increments access count and stamps last access", func() {
				id, err := store.AddEpisode(ctx, "ピアノを習っている", memory.EpisodeGeneral)
				Expect(err).NotTo(HaveOccurred())

				Expect(store.IncrementAccess(ctx, id)).To(Succeed())
				Expect(store.IncrementAccess(ctx, id)).To(Succeed())

				e, err := store.GetEpisode(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.AccessCount).To(Equal(2))
				Expect(e.LastAccessed).NotTo(BeNil())
			})

			It("lists oldest first with a limit", func() {
				for _, c := range []string{"a", "b", "c"} {
					_, err := store.AddEpisode(ctx, c, memory.EpisodeGeneral)
					Expect(err).NotTo(HaveOccurred())
				}
				eps, err := store.ListEpisodes(ctx, memory.ListOptions{Limit: 2})
				Expect(err).NotTo(HaveOccurred())
				Expect(eps).To(HaveLen(2))
				Expect(eps[0].Content).To(Equal("a"))
				Expect(eps[1].Content).To(Equal("b"))
			})

			It("lists most recently updated first, ignoring access", func() {
				var ids []int64
				for _, c := range []string{"a", "b", "c"} {
					id, err := store.AddEpisode(ctx, c, memory.EpisodeGeneral)
					Expect(err).NotTo(HaveOccurred())
					ids = append(ids, id)
				}
				Expect(store.IncrementAccess(ctx, ids[0])).To(Succeed())

				eps, err := store.ListEpisodes(ctx, memory.ListOptions{Order: memory.OrderRecent})
				Expect(err).NotTo(HaveOccurred())
				Expect(eps).To(HaveLen(3))
				Expect(eps[0].Content).To(Equal("c"))
				Expect(eps[1].Content).To(Equal("b"))
				Expect(eps[2].Content).To(Equal("a"))
			})
		})

		Describe("compression level", func() {
			var id int64

			BeforeEach(func() {
				var err error
				id, err = store.AddEpisode(ctx, "長いエピソード", memory.EpisodeGeneral)
				Expect(err).NotTo(HaveOccurred())
			})

			It("only increases", func() {
				Expect(store.SetCompressionLevel(ctx, "episodes", id, 2)).To(Succeed())
				err := store.SetCompressionLevel(ctx, "episodes", id, 1)
				Expect(errors.Is(err, memory.ErrCompressionRegression)).To(BeTrue())

				e, err := store.GetEpisode(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.CompressionLevel).To(Equal(2))
			})

			It("accepts the memories alias", func() {
				Expect(store.SetCompressionLevel(ctx, "memories", id, 1)).To(Succeed())
			})

			It("rejects tables outside the allow-list", func() {
				err := store.SetCompressionLevel(ctx, "requests", id, 1)
				Expect(memory.IsValidationError(err)).To(BeTrue())

				err = store.SetCompressionLevel(ctx, "episodes; DROP TABLE goals", id, 1)
				Expect(memory.IsValidationError(err)).To(BeTrue())
			})

			It("rejects out of range levels", func() {
				Expect(memory.IsValidationError(store.SetCompressionLevel(ctx, "episodes", id, 4))).To(BeTrue())
			})

			It("allows an administrative override downwards", func() {
				Expect(store.SetCompressionLevel(ctx, "episodes", id, 3)).To(Succeed())
				Expect(store.OverrideCompressionLevel(ctx, "episodes", id, 0)).To(Succeed())
				e, err := store.GetEpisode(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.CompressionLevel).To(Equal(0))
			})
		})

		Describe("goals", func() {
			It("clamps priority and defaults to 5", func() {
				hi, err := store.AddGoal(ctx, "英語を勉強する", -3)
				Expect(err).NotTo(HaveOccurred())
				lo, err := store.AddGoal(ctx, "部屋を片付ける", 42)
				Expect(err).NotTo(HaveOccurred())
				def, err := store.AddGoal(ctx, "本を読む", 0)
				Expect(err).NotTo(HaveOccurred())

				g, _ := store.GetGoal(ctx, hi)
				Expect(g.Priority).To(Equal(1))
				g, _ = store.GetGoal(ctx, lo)
				Expect(g.Priority).To(Equal(10))
				g, _ = store.GetGoal(ctx, def)
				Expect(g.Priority).To(Equal(5))
				Expect(g.Status).To(Equal(memory.GoalActive))
			})

			It("stamps completed_at on completion and filters by status", func() {
				id, err := store.AddGoal(ctx, "資格を取る", 3)
				Expect(err).NotTo(HaveOccurred())
				_, err = store.AddGoal(ctx, "ジムに通う", 4)
				Expect(err).NotTo(HaveOccurred())

				completed := memory.GoalCompleted
				Expect(store.UpdateGoal(ctx, id, memory.GoalPatch{Status: &completed})).To(Succeed())

				g, err := store.GetGoal(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(g.CompletedAt).NotTo(BeNil())

				active, err := store.ListGoals(ctx, memory.ListOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(active).To(HaveLen(1))

				done, err := store.ListGoals(ctx, memory.ListOptions{Status: memory.GoalCompleted})
				Expect(err).NotTo(HaveOccurred())
				Expect(done).To(HaveLen(1))

				all, err := store.ListGoals(ctx, memory.ListOptions{IncludeInactive: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(2))
			})

			It("rejects unknown statuses", func() {
				id, err := store.AddGoal(ctx, "x", 5)
				Expect(err).NotTo(HaveOccurred())
				bogus := memory.GoalStatus("paused")
				Expect(memory.IsValidationError(store.UpdateGoal(ctx, id, memory.GoalPatch{Status: &bogus}))).To(BeTrue())
			})

			It("orders by priority", func() {
				_, err := store.AddGoal(ctx, "low", 9)
				Expect(err).NotTo(HaveOccurred())
				_, err = store.AddGoal(ctx, "high", 1)
				Expect(err).NotTo(HaveOccurred())

				goals, err := store.ListGoals(ctx, memory.ListOptions{Order: memory.OrderPriority})
				Expect(err).NotTo(HaveOccurred())
				Expect(goals[0].Content).To(Equal("high"))
			})
		})

		Describe("requests", func() {
			It("adds, deactivates and deletes", func() {
				id, err := store.AddRequest(ctx, "敬語で話して", memory.RequestTone)
				Expect(err).NotTo(HaveOccurred())

				inactive := false
				Expect(store.UpdateRequest(ctx, id, memory.RequestPatch{Active: &inactive})).To(Succeed())
				reqs, err := store.ListRequests(ctx, memory.ListOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(reqs).To(BeEmpty())

				Expect(store.DeleteRequest(ctx, id)).To(Succeed())
				_, err = store.GetRequest(ctx, id)
				Expect(err).To(MatchError(memory.ErrNotFound))
			})
		})

		Describe("Tx", func() {
			It("commits all writes together", func() {
				a, _ := store.AddEpisode(ctx, "A", memory.EpisodeGeneral)
				b, _ := store.AddEpisode(ctx, "B", memory.EpisodeGeneral)

				err := store.Tx(ctx, func(tx memory.Store) error {
					merged := "A と B"
					if err := tx.UpdateEpisode(ctx, a, memory.EpisodePatch{Content: &merged}); err != nil {
						return err
					}
					return tx.DeleteEpisode(ctx, b, false)
				})
				Expect(err).NotTo(HaveOccurred())

				eps, err := store.ListEpisodes(ctx, memory.ListOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(eps).To(HaveLen(1))
				Expect(eps[0].Content).To(Equal("A と B"))
			})

			It("rolls back every write when the body fails", func() {
				a, _ := store.AddEpisode(ctx, "A", memory.EpisodeGeneral)
				boom := errors.New("boom")

				err := store.Tx(ctx, func(tx memory.Store) error {
					merged := "changed"
					if err := tx.UpdateEpisode(ctx, a, memory.EpisodePatch{Content: &merged}); err != nil {
						return err
					}
					return boom
				})
				Expect(err).To(MatchError(boom))

				e, err := store.GetEpisode(ctx, a)
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Content).To(Equal("A"))
			})
		})
	})
}
