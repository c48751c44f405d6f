package servecmder

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/logger"
	testutils "github.com/papercomputeco/curlens/pkg/utils/test"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the serve flags", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		for _, name := range []string{"listen", "sqlite", "agent-command", "search-model", "no-mcp"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().ShorthandLookup("l")).NotTo(BeNil())
	})

	It("rejects positional arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("newServer", func() {
	var a *app.App

	BeforeEach(func() {
		store, err := catalog.Open(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		a = &app.App{
			Settings: &app.Settings{Config: config.NewDefaultConfig()},
			Logger:   logger.Nop(),
			Catalog:  store,
			Runner:   testutils.NewMockRunner(""),
		}
	})

	It("builds a server with the MCP endpoint", func() {
		server, err := newServer(a, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(server).NotTo(BeNil())
	})

	It("builds a server without the MCP endpoint", func() {
		server, err := newServer(a, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(server).NotTo(BeNil())
	})

	It("fails when the agent command cannot be parsed", func() {
		a.Settings.Config.Agent.Command = `cursor "agent`
		_, err := newServer(a, false)
		Expect(err).To(HaveOccurred())
	})
})
