package chat_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/chat"
	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/memoir/pkg/utils/test"
	"github.com/papercomputeco/memoir/pkg/worker"
)

type jobRecorder struct {
	jobs []worker.Job
}

func (r *jobRecorder) Enqueue(j worker.Job) bool {
	r.jobs = append(r.jobs, j)
	return true
}

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		now     time.Time
		gen     *testutils.MockGenerator
		store   *inmemory.Store
		jobs    *jobRecorder
		session *chat.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		gen = testutils.NewMockGenerator()
		gen.Default = "はい、承知しました。"
		store = inmemory.NewStore()
		jobs = &jobRecorder{}
		session = chat.New(gen, store,
			chat.WithEnqueuer(jobs),
			chat.WithClock(func() time.Time { return now }),
		)
	})

	It("rejects blank input", func() {
		_, err := session.Send(ctx, "   ")
		Expect(err).To(MatchError(chat.ErrEmptyInput))
	})

	It("injects the profile into the system prompt", func() {
		_, _ = store.AddAttribute(ctx, "名前", "田中太郎")

		reply, err := session.Send(ctx, "こんにちは")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Text).To(Equal("はい、承知しました。"))

		calls := gen.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].System).To(ContainSubstring("AI Secretary"))
		Expect(calls[0].System).To(ContainSubstring("- 名前: 田中太郎"))
	})

	It("carries history and enqueues the preceding assistant utterance", func() {
		gen.Once("お名前", "あなたの名前は鈴木さんですか？")
		_, err := session.Send(ctx, "私のお名前を覚えていますか")
		Expect(err).NotTo(HaveOccurred())

		_, err = session.Send(ctx, "いいえ")
		Expect(err).NotTo(HaveOccurred())

		Expect(gen.Calls()[1].History).To(HaveLen(2))
		Expect(jobs.jobs).To(Equal([]worker.Job{
			{User: "私のお名前を覚えていますか", Assistant: ""},
			{User: "いいえ", Assistant: "あなたの名前は鈴木さんですか？"},
		}))
	})

	It("resets history on a trigger word", func() {
		_, _ = session.Send(ctx, "明日の予定は？")
		reply, err := session.Send(ctx, "ありがとうございます")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Reset).To(BeTrue())
		Expect(gen.Calls()[1].History).To(BeEmpty())
		Expect(session.History()).To(HaveLen(2))
	})

	It("resets history after the idle timeout", func() {
		_, _ = session.Send(ctx, "明日の予定は？")

		now = now.Add(299 * time.Second)
		reply, _ := session.Send(ctx, "続きを教えて")
		Expect(reply.Reset).To(BeFalse())

		now = now.Add(300 * time.Second)
		reply, _ = session.Send(ctx, "それで？")
		Expect(reply.Reset).To(BeTrue())
	})

	It("counts injected episodes as accessed", func() {
		id, _ := store.AddEpisode(ctx, "猫を飼っている", memory.EpisodeGeneral)
		_, _ = session.Send(ctx, "ペットの話をしよう")

		e, err := store.GetEpisode(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.AccessCount).To(Equal(1))
	})

	It("surfaces generation failures without recording the turn", func() {
		gen.FailOn("失敗", llm.ErrUnavailable)
		_, err := session.Send(ctx, "失敗するはず")
		Expect(err).To(MatchError(llm.ErrUnavailable))
		Expect(session.History()).To(BeEmpty())
		Expect(jobs.jobs).To(BeEmpty())
	})

	It("round-trips through persisted state", func() {
		_, _ = session.Send(ctx, "こんにちは")
		state := session.State()
		Expect(state.Messages).To(HaveLen(2))
		Expect(state.LastActivity).To(Equal(now))

		resumed := chat.New(gen, store, chat.WithClock(func() time.Time { return now.Add(time.Minute) }))
		resumed.Restore(state)
		reply, err := resumed.Send(ctx, "続き")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Reset).To(BeFalse())
		Expect(resumed.History()).To(HaveLen(4))

		resumed.Restore(&dotdir.SessionState{})
		Expect(resumed.History()).To(BeEmpty())
	})
})
