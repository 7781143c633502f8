package inmemory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/storage/inmemory"
	"github.com/papercomputeco/memoir/pkg/storage/storetest"
)

var _ = storetest.DescribeStore("In-memory", func() memory.Store {
	return inmemory.NewStore()
})

var _ = Describe("Store", func() {
	It("uses the injected clock", func() {
		fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		s := inmemory.NewStore(inmemory.WithClock(func() time.Time { return fixed }))

		id, err := s.AddEpisode(context.Background(), "x", memory.EpisodeGeneral)
		Expect(err).NotTo(HaveOccurred())

		e, err := s.GetEpisode(context.Background(), id)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.CreatedAt).To(Equal(fixed))
	})

	It("ages fixtures with SetCreatedAt", func() {
		s := inmemory.NewStore()
		id, _ := s.AddEpisode(context.Background(), "x", memory.EpisodeGeneral)
		past := time.Now().AddDate(-1, 0, 0)
		Expect(s.SetCreatedAt(id, past)).To(Succeed())

		e, _ := s.GetEpisode(context.Background(), id)
		Expect(e.CreatedAt).To(Equal(past))
	})

	It("joins nested transactions", func() {
		s := inmemory.NewStore()
		ctx := context.Background()
		err := s.Tx(ctx, func(tx memory.Store) error {
			return tx.Tx(ctx, func(inner memory.Store) error {
				_, err := inner.AddGoal(ctx, "nested", 5)
				return err
			})
		})
		Expect(err).NotTo(HaveOccurred())

		goals, _ := s.ListGoals(ctx, memory.ListOptions{})
		Expect(goals).To(HaveLen(1))
	})

	It("keeps writes made outside a transaction that rolls back", func() {
		s := inmemory.NewStore()
		ctx := context.Background()
		kept, err := s.AddEpisode(ctx, "before", memory.EpisodeGeneral)
		Expect(err).NotTo(HaveOccurred())

		boom := errors.New("boom")
		err = s.Tx(ctx, func(tx memory.Store) error {
			if _, err := tx.AddEpisode(ctx, "inside", memory.EpisodeGeneral); err != nil {
				return err
			}
			content := "edited inside"
			if err := tx.UpdateEpisode(ctx, kept, memory.EpisodePatch{Content: &content}); err != nil {
				return err
			}
			if _, err := s.AddEpisode(ctx, "extracted meanwhile", memory.EpisodeGeneral); err != nil {
				return err
			}
			return boom
		})
		Expect(err).To(MatchError(boom))

		episodes, err := s.ListEpisodes(ctx, memory.ListOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(episodes).To(HaveLen(2))
		Expect(episodes[0].Content).To(Equal("before"))
		Expect(episodes[1].Content).To(Equal("extracted meanwhile"))
	})
})
