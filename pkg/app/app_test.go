package app_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/config"
	"github.com/papercomputeco/memoir/pkg/eventstream/nop"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/worker"
	testutils "github.com/papercomputeco/memoir/pkg/utils/test"
)

const structuredStage = "前のステップでの思考内容"

var _ = Describe("App", func() {
	var (
		ctx context.Context
		cfg *config.Config
		dir string
		gen *testutils.MockGenerator
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.Storage.Provider = "memory"
		dir = GinkgoT().TempDir()
		gen = testutils.NewMockGenerator()
	})

	It("wires every component without a pool by default", func() {
		a, err := app.New(ctx, app.Options{Config: cfg, ConfigDir: dir, Generator: gen})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		Expect(a.Store).NotTo(BeNil())
		Expect(a.Client).NotTo(BeNil())
		Expect(a.Extractor).NotTo(BeNil())
		Expect(a.Organizer).NotTo(BeNil())
		Expect(a.Progress).NotTo(BeNil())
		Expect(a.Metrics).NotTo(BeNil())
		Expect(a.Publisher).NotTo(BeNil())
		Expect(a.Pool).To(BeNil())
	})

	It("falls back to defaults without a config", func() {
		a, err := app.New(ctx, app.Options{ConfigDir: dir, Generator: gen})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		Expect(a.Config.Storage.Provider).To(Equal("sqlite"))
		Expect(filepath.Join(dir, app.SQLiteFile)).To(BeAnExistingFile())
	})

	It("saves turns queued on the pool", func() {
		gen.On(structuredStage, "```json\n"+`{
			"attributes": [{"name": "名前", "value": "佐藤"}],
			"memories": [], "goals": [], "requests": []
		}`+"\n```")

		a, err := app.New(ctx, app.Options{Config: cfg, ConfigDir: dir, Generator: gen, StartPool: true})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		Expect(a.Pool.Enqueue(worker.Job{User: "佐藤です。", Assistant: "こんにちは"})).To(BeTrue())
		Eventually(func() []memory.Attribute {
			attrs, _ := a.Store.ListAttributes(ctx, memory.ListOptions{})
			return attrs
		}).Should(HaveLen(1))

		nopPublisher, ok := a.Publisher.(*nop.Publisher)
		Expect(ok).To(BeTrue())
		Eventually(func() int64 {
			_, turns := nopPublisher.Counts()
			return turns
		}).Should(BeEquivalentTo(1))
	})

	It("rejects an unknown storage provider", func() {
		cfg.Storage.Provider = "cassandra"
		_, err := app.New(ctx, app.Options{Config: cfg, ConfigDir: dir, Generator: gen})
		Expect(err).To(MatchError(ContainSubstring("unknown storage provider")))
	})

	It("rejects an unknown eventstream provider", func() {
		cfg.EventStream.Provider = "nats"
		_, err := app.New(ctx, app.Options{Config: cfg, ConfigDir: dir, Generator: gen})
		Expect(err).To(MatchError(ContainSubstring("unknown eventstream provider")))
	})

	It("rejects an unknown generation provider", func() {
		cfg.Generation.Provider = "bedrock"
		_, err := app.New(ctx, app.Options{Config: cfg, ConfigDir: dir})
		Expect(err).To(MatchError(ContainSubstring("creating generator")))
	})

	Describe("SQLitePath", func() {
		It("prefers the configured path", func() {
			p, err := app.SQLitePath(config.StorageConfig{SQLitePath: "/tmp/x.db"}, dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal("/tmp/x.db"))
		})

		It("defaults into the memoir directory", func() {
			p, err := app.SQLitePath(config.StorageConfig{}, dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(HaveSuffix(filepath.Join(filepath.Base(dir), "memoir.db")))
		})
	})
})
