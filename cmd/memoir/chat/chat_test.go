package chatcmder

import (
	"bytes"
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/chat"
	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/memoir/pkg/utils/test"
	"github.com/papercomputeco/memoir/pkg/worker"
)

type recordingQueue struct {
	jobs []worker.Job
}

func (q *recordingQueue) Enqueue(job worker.Job) bool {
	q.jobs = append(q.jobs, job)
	return true
}

var _ = Describe("chat loop", func() {
	var (
		dir     string
		gen     *testutils.MockGenerator
		queue   *recordingQueue
		session *chat.Session
		ddm     *dotdir.Manager
		cmder   *chatCommander
		cmd     *cobra.Command
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		gen = testutils.NewMockGenerator()
		gen.Default = "なるほど。"
		queue = &recordingQueue{}
		session = chat.New(gen, inmemory.NewStore(), chat.WithEnqueuer(queue))
		ddm = dotdir.NewManager()
		cmder = &chatCommander{configDir: dir}
		cmd = &cobra.Command{}
		cmd.SetContext(context.Background())
		cmd.SetErr(&bytes.Buffer{})
		out = &bytes.Buffer{}
	})

	It("answers, queues and persists each turn", func() {
		in := strings.NewReader("こんにちは\n\n大阪に住んでいます\n/exit\n")
		Expect(cmder.loop(cmd, session, ddm, in, out)).To(Succeed())

		Expect(strings.Count(out.String(), "なるほど。")).To(Equal(2))
		Expect(queue.jobs).To(Equal([]worker.Job{
			{User: "こんにちは", Assistant: ""},
			{User: "大阪に住んでいます", Assistant: "なるほど。"},
		}))

		state, err := ddm.LoadSession(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Messages).To(HaveLen(4))
	})

	It("clears the saved session on /reset", func() {
		in := strings.NewReader("こんにちは\n/reset\n")
		Expect(cmder.loop(cmd, session, ddm, in, out)).To(Succeed())

		Expect(session.History()).To(BeEmpty())
		state, err := ddm.LoadSession(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
		Expect(out.String()).To(ContainSubstring("Conversation reset."))
	})

	It("keeps going after a generation failure", func() {
		gen.FailOn("失敗", context.DeadlineExceeded)
		in := strings.NewReader("失敗して\nこんにちは\n")
		Expect(cmder.loop(cmd, session, ddm, in, out)).To(Succeed())

		Expect(queue.jobs).To(HaveLen(1))
		Expect(session.History()).To(HaveLen(2))
	})
})

var _ = Describe("parseTimeout", func() {
	It("defaults when unset", func() {
		Expect(parseTimeout("")).To(Equal(chat.DefaultTimeout))
	})

	It("parses durations", func() {
		Expect(parseTimeout("90s")).To(Equal(90 * time.Second))
	})

	It("rejects garbage", func() {
		_, err := parseTimeout("soon")
		Expect(err).To(HaveOccurred())
	})
})
