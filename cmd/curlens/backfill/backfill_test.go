package backfillcmder

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/backfill"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/chatstore"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/eventstream/nop"
	"github.com/papercomputeco/curlens/pkg/logger"
	testutils "github.com/papercomputeco/curlens/pkg/utils/test"
	"github.com/papercomputeco/curlens/pkg/workspace"
)

var _ = Describe("NewBackfillCmd", func() {
	It("registers the backfill flags", func() {
		cmd := NewBackfillCmd()
		Expect(cmd.Use).To(Equal("backfill"))
		for _, name := range []string{"dry-run", "limit", "workers", "sqlite", "cursor-home", "verbose"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("rejects positional arguments", func() {
		cmd := NewBackfillCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("runBackfill", func() {
	var (
		ctx    context.Context
		a      *app.App
		runner *testutils.MockRunner
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}

		home, err := testutils.NewCursorHome(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		store, err := catalog.Open(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		path := filepath.Join(home.Root, "src", "shop")
		hash := workspace.Hash(path)
		_, err = home.CreateSession(hash, "3f2a9c41-session", &testutils.SessionMeta{Name: "Checkout flow", Created: time.Now().Add(-time.Hour)},
			testutils.Text("user", "Add a guest checkout path to the shop so buyers can pay without creating an account."),
			testutils.Text("assistant", "Added a guest checkout route, a form for the shipping address and Stripe payment for anonymous carts."),
		)
		Expect(err).NotTo(HaveOccurred())

		runner = testutils.NewMockRunner("Added a guest checkout route with a shipping address form and Stripe payments for anonymous carts in the shop.")
		a = &app.App{
			Settings:  &app.Settings{Config: config.NewDefaultConfig()},
			Logger:    logger.Nop(),
			Catalog:   store,
			Sessions:  chatstore.NewStore(home.ChatsDir()),
			Resolver:  workspace.NewResolver(home.ProjectsDir(), []workspace.Mapping{{Hash: hash, Path: path}}, logger.Nop()),
			Runner:    runner,
			Publisher: nop.NewPublisher(),
		}
	})

	It("lists the plan on a dry run without calling the agent", func() {
		err := runBackfill(ctx, out, a, backfill.Options{DryRun: true, Workers: 1}, false, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.Calls()).To(BeZero())
		Expect(out.String()).To(ContainSubstring("3f2a9c41"))
		Expect(out.String()).To(ContainSubstring("Checkout flow"))
		Expect(out.String()).To(ContainSubstring("(new, 2 new messages)"))
		Expect(out.String()).To(ContainSubstring("Dry run: 1 of 1 sessions would be summarized"))
	})

	It("summarizes and reports the result", func() {
		err := runBackfill(ctx, out, a, backfill.Options{Workers: 1}, false, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.Calls()).To(Equal(1))
		Expect(out.String()).To(ContainSubstring("Backfill complete: 1 summarized"))

		entry, err := a.Catalog.Get(ctx, "3f2a9c41-session")
		Expect(err).NotTo(HaveOccurred())
		Expect(entry.Title).To(Equal("Checkout flow"))
	})

	It("prints session errors when verbose", func() {
		runner.Reply = "  "
		err := runBackfill(ctx, out, a, backfill.Options{Workers: 1}, true, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("1 failed"))
		Expect(out.String()).To(ContainSubstring("3f2a9c41"))
	})
})
