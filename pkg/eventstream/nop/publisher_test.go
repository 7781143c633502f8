package nop_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/eventstream"
	"github.com/papercomputeco/memoir/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var (
		ctx context.Context
		p   *nop.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		p = nop.NewPublisher()
	})

	It("satisfies eventstream.Publisher", func() {
		var _ eventstream.Publisher = p
	})

	It("rejects nil events without counting them", func() {
		Expect(p.PublishProgress(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishTurn(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))

		progress, turns := p.Counts()
		Expect(progress).To(BeZero())
		Expect(turns).To(BeZero())
	})

	It("counts events from concurrent publishers", func() {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(p.PublishProgress(ctx, &eventstream.ProgressEvent{RunID: "r"})).To(Succeed())
				Expect(p.PublishTurn(ctx, &eventstream.TurnExtractedEvent{})).To(Succeed())
			}()
		}
		wg.Wait()

		progress, turns := p.Counts()
		Expect(progress).To(BeEquivalentTo(8))
		Expect(turns).To(BeEquivalentTo(8))
		Expect(p.Close()).To(Succeed())
	})
})
