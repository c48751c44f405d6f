package search_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/search"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func entry(id, title, summary string, age time.Duration) catalog.Entry {
	return catalog.Entry{
		SessionID:     id,
		WorkspacePath: "/home/dev/" + id,
		Title:         title,
		Summary:       summary,
		UpdatedAt:     now.Add(-age),
	}
}

func ids(results []search.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Entry.SessionID
	}
	return out
}

var flinkCatalog = []catalog.Entry{
	entry("tuning", "Flink Job Tuning", "Tuned checkpointing interval and parallelism of the ingestion job.", 48*time.Hour),
	entry("debug", "Stream Processing Debug", "Chased late events through the watermark strategy of the Flink pipeline.", time.Hour),
	entry("landing", "Landing page copy", "Rewrote the hero text and pricing table.", 30*time.Minute),
}

var _ = Describe("KeywordRanker", func() {
	var (
		ctx    context.Context
		ranker search.KeywordRanker
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("ranks a title match above a summary match and drops entries without overlap", func() {
		results, err := ranker.Rank(ctx, "flink optimization", flinkCatalog, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"tuning", "debug"}))
		Expect(results[0].Rank).To(Equal(1))
		Expect(results[1].Rank).To(Equal(2))
		Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		Expect(results[0].Reason).To(Equal("matched flink"))
	})

	It("is deterministic", func() {
		first, err := ranker.Rank(ctx, "flink optimization", flinkCatalog, 10)
		Expect(err).NotTo(HaveOccurred())

		for range 5 {
			again, err := ranker.Rank(ctx, "flink optimization", flinkCatalog, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(first))
		}
	})

	It("prefers all terms in the title over all terms in the summary", func() {
		entries := []catalog.Entry{
			entry("body", "Misc fixes", "Investigated kafka consumer lag on the orders topic.", time.Minute),
			entry("title", "Kafka consumer lag", "Looked at dashboards.", 72*time.Hour),
		}

		results, err := ranker.Rank(ctx, "kafka consumer lag", entries, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"title", "body"}))
	})

	It("breaks ties by recency, then session id", func() {
		entries := []catalog.Entry{
			entry("b", "Redis cache", "", time.Hour),
			entry("old", "Redis cache", "", 10*time.Hour),
			entry("a", "Redis cache", "", time.Hour),
		}

		results, err := ranker.Rank(ctx, "redis", entries, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"a", "b", "old"}))
	})

	It("ignores case, punctuation and diacritics", func() {
		entries := []catalog.Entry{
			entry("cafe", "Café menu API", "Added GraphQL endpoint.", time.Hour),
		}

		results, err := ranker.Rank(ctx, "CAFE graphql!", entries, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"cafe"}))
		Expect(results[0].Score).To(Equal(4.0))
	})

	It("matches longer terms as prefixes", func() {
		results, err := ranker.Rank(ctx, "checkpoint", flinkCatalog, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"tuning"}))
	})

	It("matches the workspace directory name", func() {
		entries := []catalog.Entry{
			{SessionID: "w", WorkspacePath: "/src/billing-service", Title: "Retry jobs", Summary: "Added backoff.", UpdatedAt: now},
		}

		results, err := ranker.Rank(ctx, "billing", entries, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Score).To(Equal(2.0))
	})

	It("drops stopwords", func() {
		results, err := ranker.Rank(ctx, "the job", flinkCatalog, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"tuning"}))
	})

	It("caps results at topK", func() {
		results, err := ranker.Rank(ctx, "flink", flinkCatalog, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(results)).To(Equal([]string{"tuning"}))
	})

	It("rejects a query without terms", func() {
		_, err := ranker.Rank(ctx, " ?! ", flinkCatalog, 10)
		Expect(err).To(MatchError(search.ErrEmptyQuery))
	})
})

var _ = Describe("QueryTerms", func() {
	It("deduplicates in order", func() {
		Expect(search.QueryTerms("Flink, flink tuning")).To(Equal([]string{"flink", "tuning"}))
	})

	It("keeps stopwords when nothing else is left", func() {
		Expect(search.QueryTerms("the it")).To(Equal([]string{"the", "it"}))
	})
})
