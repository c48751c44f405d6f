package searchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/curlens/pkg/catalog"
	"github.com/papercomputeco/curlens/pkg/index"
	"github.com/papercomputeco/curlens/pkg/logger"
	"github.com/papercomputeco/curlens/pkg/resume"
	"github.com/papercomputeco/curlens/pkg/search"
)

var _ = Describe("NewSearchCmd", func() {
	It("requires a description", func() {
		cmd := NewSearchCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"flink", "tuning"})).To(Succeed())
	})

	It("registers the search flags", func() {
		cmd := NewSearchCmd()
		for _, name := range []string{"smart", "window-days", "top", "select", "print", "json", "sqlite"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

var _ = Describe("searcher", func() {
	var (
		ctx      context.Context
		store    *catalog.Store
		out      *bytes.Buffer
		s        *searcher
		launched []resume.Target
	)

	commit := func(id, path, title, summary string, age time.Duration) {
		at := time.Now().Add(-age)
		entry := catalog.Entry{SessionID: id, WorkspacePath: path, Title: title, Summary: summary, CreatedAt: at, UpdatedAt: at}
		Expect(store.Commit(ctx, entry, index.Watermark{SessionID: id, LastSeq: 1})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}
		launched = nil

		var err error
		store, err = catalog.Open(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		launcher, err := resume.NewLauncher("cursor agent")
		Expect(err).NotTo(HaveOccurred())

		s = &searcher{
			engine:   search.NewEngine(store, logger.Nop()),
			launcher: launcher,
			in:       strings.NewReader(""),
			out:      out,
			width:    80,
			now:      time.Now,
			exec: func(_ context.Context, _ *resume.Launcher, target resume.Target) error {
				launched = append(launched, target)
				return nil
			},
		}
	})

	query := func(text string) search.Query {
		return search.Query{Text: text, WindowDays: 20, TopK: 3}
	}

	It("points at backfill when nothing is indexed", func() {
		err := s.run(ctx, query("flink"), options{})
		Expect(err).To(MatchError(search.ErrNoSessionsIndexed))
		Expect(err.Error()).To(ContainSubstring("curlens backfill"))
	})

	Context("with indexed sessions", func() {
		BeforeEach(func() {
			commit("s-flink", "/src/stream", "Flink Job Tuning", "Tuned Flink checkpointing and parallelism.", time.Hour)
			commit("s-web", "/src/web", "Dark mode", "Added a theme toggle to the settings page.", 2*time.Hour)
		})

		It("reports no matches without failing", func() {
			Expect(s.run(ctx, query("kubernetes"), options{})).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`No sessions matched "kubernetes"`))
			Expect(launched).To(BeEmpty())
		})

		It("resumes the session chosen at the prompt", func() {
			s.in = strings.NewReader("1\n")
			Expect(s.run(ctx, query("flink tuning"), options{})).To(Succeed())

			Expect(out.String()).To(ContainSubstring("1. Flink Job Tuning"))
			Expect(launched).To(ConsistOf(resume.Target{WorkspacePath: "/src/stream", SessionID: "s-flink", Title: "Flink Job Tuning"}))
		})

		It("recaps the chosen summary before resuming", func() {
			Expect(s.run(ctx, query("flink"), options{selectN: 1})).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Resuming"))
			Expect(out.String()).To(ContainSubstring("checkpointing"))
		})

		It("cancels on an empty answer", func() {
			s.in = strings.NewReader("\n")
			Expect(s.run(ctx, query("flink"), options{})).To(Succeed())
			Expect(launched).To(BeEmpty())
		})

		It("rejects an out of range answer", func() {
			s.in = strings.NewReader("7\n")
			Expect(s.run(ctx, query("flink"), options{})).To(MatchError(resume.ErrInvalidSelection))
			Expect(launched).To(BeEmpty())
		})

		It("prints the resume command with --select and --print", func() {
			Expect(s.run(ctx, query("dark mode"), options{selectN: 1, print: true})).To(Succeed())
			Expect(out.String()).To(Equal("cd /src/web && cursor agent --resume s-web\n"))
			Expect(launched).To(BeEmpty())
		})

		It("uses the picker when one is available", func() {
			s.pick = func(_ context.Context, o *search.Output, _ int) (int, error) {
				Expect(o.Results).NotTo(BeEmpty())
				return 0, nil
			}
			Expect(s.run(ctx, query("dark mode"), options{})).To(Succeed())
			Expect(launched).To(HaveLen(1))
			Expect(launched[0].SessionID).To(Equal("s-web"))
		})

		It("treats a cancelled picker as no selection", func() {
			s.pick = func(context.Context, *search.Output, int) (int, error) { return -1, nil }
			Expect(s.run(ctx, query("dark mode"), options{})).To(Succeed())
			Expect(launched).To(BeEmpty())
		})

		It("writes JSON", func() {
			Expect(s.run(ctx, query("flink"), options{json: true})).To(Succeed())

			var decoded search.Output
			Expect(json.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
			Expect(decoded.Count).To(Equal(1))
			Expect(decoded.Results[0].Entry.SessionID).To(Equal("s-flink"))
			Expect(launched).To(BeEmpty())
		})
	})
})
