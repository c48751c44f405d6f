package mcp_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/api/mcp"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/logger"
	"github.com/papercomputeco/curlens/pkg/search"
)

var _ = Describe("MCP Server", func() {
	var engine *search.Engine

	BeforeEach(func() {
		store, err := catalog.Open(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		engine = search.NewEngine(store, logger.Nop())
	})

	Describe("NewServer", func() {
		It("returns an error when the engine is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("search engine is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Engine: engine})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Engine: engine, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
