package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/storage/sqlite"
	"github.com/papercomputeco/memoir/pkg/storage/storetest"
)

var _ = storetest.DescribeStore("SQLite", func() memory.Store {
	s, err := sqlite.NewStore(context.Background(), ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return s
})

var _ = Describe("NewStore", func() {
	It("creates a file database and reopens it with data intact", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "memoir.db")

		s, err := sqlite.NewStore(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		id, err := s.AddAttribute(ctx, "名前", "田中太郎")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Close()).To(Succeed())

		s, err = sqlite.NewStore(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		a, err := s.GetAttribute(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Value).To(Equal("田中太郎"))
	})
})
