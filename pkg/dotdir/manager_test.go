package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memoir/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var work, home string

	BeforeEach(func() {
		var err error
		// EvalSymlinks keeps comparisons stable where /tmp is a link.
		work, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		home, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	newManager := func() *dotdir.Manager {
		return dotdir.NewManager(dotdir.WithWorkDir(work), dotdir.WithHomeDir(home))
	}

	Describe("Locate", func() {
		It("prefers the override over a local directory", func() {
			Expect(os.Mkdir(filepath.Join(work, dotdir.DirName), 0o755)).To(Succeed())
			override := filepath.Join(work, "elsewhere")

			dir, origin, err := newManager().Locate(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(override))
			Expect(origin).To(Equal(dotdir.OriginOverride))
		})

		It("finds ./.memoir in the working directory", func() {
			local := filepath.Join(work, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			dir, origin, err := newManager().Locate("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(local))
			Expect(origin).To(Equal(dotdir.OriginLocal))
		})

		It("ignores a local .memoir that is a file", func() {
			Expect(os.WriteFile(filepath.Join(work, dotdir.DirName), nil, 0o600)).To(Succeed())

			_, origin, err := newManager().Locate("")
			Expect(err).NotTo(HaveOccurred())
			Expect(origin).To(Equal(dotdir.OriginHome))
		})

		It("falls back to the home directory without creating it", func() {
			dir, origin, err := newManager().Locate("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(home, dotdir.DirName)))
			Expect(origin).To(Equal(dotdir.OriginHome))
			Expect(dir).NotTo(BeADirectory())
		})
	})

	Describe("Target", func() {
		It("creates the chosen directory", func() {
			dir, err := newManager().Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(BeADirectory())
		})

		It("returns an existing override unchanged", func() {
			dir, err := newManager().Target(work)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(work))
		})
	})

	Describe("Path", func() {
		It("joins a file name onto the target", func() {
			p, err := newManager().Path(work, "memoir.db")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(filepath.Join(work, "memoir.db")))
		})
	})
})
