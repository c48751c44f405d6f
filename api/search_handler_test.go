package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/pkg/agent"
	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/logger"
	"github.com/papercomputeco/curlens/pkg/search"
	testutils "github.com/papercomputeco/curlens/pkg/utils/test"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server *Server
		runner *testutils.MockRunner
	)

	BeforeEach(func() {
		now := time.Now().Truncate(time.Millisecond)
		store := newTestCatalog(
			catalog.Entry{SessionID: "tuning", WorkspacePath: "/src/stream", Title: "Flink Job Tuning", Summary: "Tuned checkpointing and parallelism.", UpdatedAt: now.Add(-2 * time.Hour)},
			catalog.Entry{SessionID: "debug", WorkspacePath: "/src/stream", Title: "Stream Processing Debug", Summary: "Chased watermarks in the Flink pipeline.", UpdatedAt: now.Add(-time.Hour)},
			catalog.Entry{SessionID: "old", WorkspacePath: "/src/legacy", Title: "Legacy Storm topology", Summary: "Ported a bolt to Flink.", UpdatedAt: now.Add(-90 * 24 * time.Hour)},
		)

		runner = testutils.NewMockRunner("")
		var err error
		server, err = NewServer(Config{ListenAddr: ":0", WindowDays: 20, TopK: 3}, store, agent.NewRanker(runner, "grok"), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	decode := func(body []byte) search.Output {
		var out search.Output
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		return out
	}

	It("ranks by keyword within the window", func() {
		resp, body := get(server, "/v1/search?query=flink+optimization")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		out := decode(body)
		Expect(out.Ranker).To(Equal("keyword"))
		Expect(out.Count).To(Equal(2))
		Expect(out.Results[0].Entry.SessionID).To(Equal("tuning"))
		Expect(out.Results[1].Entry.SessionID).To(Equal("debug"))
	})

	It("searches everything when window_days is zero", func() {
		_, body := get(server, "/v1/search?query=flink&window_days=0&top_k=5")
		Expect(decode(body).Count).To(Equal(3))
	})

	It("lifts the window when needed", func() {
		_, body := get(server, "/v1/search?query=storm")

		out := decode(body)
		Expect(out.WindowLifted).To(BeTrue())
		Expect(out.Results[0].Entry.SessionID).To(Equal("old"))
	})

	It("uses the agent in smart mode", func() {
		runner.Reply = `[{"id": "debug", "reason": "pipeline debugging"}]`

		_, body := get(server, "/v1/search?query=flink&smart=true")
		out := decode(body)
		Expect(out.Ranker).To(Equal("smart"))
		Expect(out.Results).To(HaveLen(1))
		Expect(out.Results[0].Reason).To(Equal("pipeline debugging"))
		Expect(runner.Calls()).To(Equal(1))
	})

	It("returns an empty list when nothing matches", func() {
		resp, body := get(server, "/v1/search?query=kubernetes")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		out := decode(body)
		Expect(out.Count).To(BeZero())
		Expect(out.Results).To(BeEmpty())
	})

	It("returns 404 when nothing is indexed", func() {
		empty, err := NewServer(Config{}, newTestCatalog(), nil, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		resp, body := get(empty, "/v1/search?query=flink")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(string(body)).To(ContainSubstring("no sessions indexed yet"))
	})

	DescribeTable("rejects bad parameters",
		func(target, message string) {
			resp, body := get(server, target)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring(message))
		},
		Entry("missing query", "/v1/search", "query parameter is required"),
		Entry("empty query", "/v1/search?query=", "query parameter is required"),
		Entry("punctuation only", "/v1/search?query=%3F%21", "empty search query"),
		Entry("non-integer top_k", "/v1/search?query=flink&top_k=abc", "top_k must be a positive integer"),
		Entry("zero top_k", "/v1/search?query=flink&top_k=0", "top_k must be a positive integer"),
		Entry("negative window", "/v1/search?query=flink&window_days=-1", "window_days must be a non-negative integer"),
		Entry("bad smart flag", "/v1/search?query=flink&smart=maybe", "smart must be a boolean"),
	)
})
