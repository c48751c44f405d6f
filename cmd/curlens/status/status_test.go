package statuscmder_test

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/curlens/cmd/curlens/status"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/index"
)

var _ = Describe("NewStatusCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Use).To(Equal("status"))
	})

	It("rejects any arguments", func() {
		cmd := statuscmder.NewStatusCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("Status command execution", func() {
	var (
		dbPath string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "curlens.db")
		out = &bytes.Buffer{}
	})

	run := func() error {
		cmd := statuscmder.NewStatusCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--sqlite", dbPath})
		return cmd.Execute()
	}

	It("hints at backfill for an empty catalog", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Nothing indexed yet"))
		Expect(out.String()).To(ContainSubstring(dbPath))
	})

	It("counts indexed sessions", func() {
		ctx := context.Background()
		store, err := catalog.Open(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		entry := catalog.Entry{
			SessionID:     "s1",
			WorkspacePath: "/src/app",
			Title:         "Fix login",
			Summary:       "Fixed the login redirect.",
			CreatedAt:     time.Now().Add(-time.Hour),
			UpdatedAt:     time.Now().Add(-time.Hour),
		}
		Expect(store.Commit(ctx, entry, index.Watermark{SessionID: "s1", LastSeq: 4})).To(Succeed())
		Expect(store.Close()).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`Sessions\s+1`))
		Expect(out.String()).To(ContainSubstring("1h ago"))
		Expect(out.String()).NotTo(ContainSubstring("Nothing indexed yet"))
	})
})
