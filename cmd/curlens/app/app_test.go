package app_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/cmd/curlens/app"
	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/eventstream/kafka"
	"github.com/papercomputeco/curlens/pkg/eventstream/nop"
	"github.com/papercomputeco/curlens/pkg/logger"
	testutils "github.com/papercomputeco/curlens/pkg/utils/test"
	"github.com/papercomputeco/curlens/pkg/workspace"
)

func newCmd(configDir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	cmd.Flags().BoolP("debug", "d", false, "")
	return cmd
}

var _ = Describe("LoadSettings", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	It("uses defaults when no config exists", func() {
		s, err := app.LoadSettings(newCmd(configDir))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.DotDir).To(Equal(configDir))
		Expect(s.Config.Search.WindowDays).To(Equal(uint(20)))

		path, err := s.CatalogPath()
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(configDir, "curlens.db")))
	})

	It("reads config.toml from the config dir", func() {
		data := "[storage]\nsqlite_path = \"/tmp/elsewhere.db\"\n[log]\ndebug = true\n"
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		s, err := app.LoadSettings(newCmd(configDir))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Config.Log.Debug).To(BeTrue())

		path, err := s.CatalogPath()
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/elsewhere.db"))
	})

	It("lets registered flags win over the file", func() {
		data := "[search]\nwindow_days = 9\n"
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		cmd := newCmd(configDir)
		var window uint
		config.AddUintFlag(cmd, config.Flags, config.FlagWindowDays, &window)
		Expect(cmd.Flags().Set("window-days", "3")).To(Succeed())

		s, err := app.LoadSettings(cmd, config.FlagWindowDays)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Config.Search.WindowDays).To(Equal(uint(3)))
	})

	It("turns on debug logging from the flag", func() {
		cmd := newCmd(configDir)
		Expect(cmd.Flags().Set("debug", "true")).To(Succeed())

		s, err := app.LoadSettings(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Config.Log.Debug).To(BeTrue())
	})
})

var _ = Describe("NewPublisher", func() {
	It("returns a nop publisher when events are disabled", func() {
		p, err := app.NewPublisher(config.EventsConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("returns a kafka publisher", func() {
		p, err := app.NewPublisher(config.EventsConfig{Provider: "kafka", Brokers: "localhost:9092", Topic: "t"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("rejects kafka without brokers", func() {
		_, err := app.NewPublisher(config.EventsConfig{Provider: "kafka", Topic: "t"}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := app.NewPublisher(config.EventsConfig{Provider: "nats"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring(`unknown events provider "nats"`)))
	})
})

var _ = Describe("Open", func() {
	var (
		ctx      context.Context
		home     *testutils.CursorHome
		settings *app.Settings
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		home, err = testutils.NewCursorHome(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cfg := config.NewDefaultConfig()
		cfg.Cursor.Home = home.Root
		settings = &app.Settings{Config: cfg, DotDir: GinkgoT().TempDir()}
	})

	It("persists discovered workspaces on close", func() {
		a, err := app.Open(ctx, settings, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		project := filepath.Join(GinkgoT().TempDir(), "proj")
		Expect(os.MkdirAll(project, 0o755)).To(Succeed())
		a.Resolver.Observe(project)
		Expect(a.Close()).To(Succeed())

		reopened, err := app.Open(ctx, settings, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		path, err := reopened.Resolver.Resolve(workspace.Hash(project))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(project))
	})

	It("fails on an unknown events provider", func() {
		settings.Config.Events.Provider = "nats"
		_, err := app.Open(ctx, settings, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Settings loggers", func() {
	var s *app.Settings

	BeforeEach(func() {
		s = &app.Settings{Config: config.NewDefaultConfig(), DotDir: filepath.Join(GinkgoT().TempDir(), ".curlens")}
	})

	It("writes no log file outside debug mode", func() {
		log, closeLog := s.NewServiceLogger("watch.log")
		log.Info("watching chats")
		Expect(closeLog()).To(Succeed())

		_, err := os.Stat(filepath.Join(s.DotDir, "watch.log"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("copies records as JSON into the dot directory in debug mode", func() {
		s.Config.Log.Debug = true

		log, closeLog := s.NewServiceLogger("watch.log")
		log.Debug("session queued", "session", "conv-1")
		Expect(closeLog()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(s.DotDir, "watch.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"session queued"`))
		Expect(string(data)).To(ContainSubstring(`"session":"conv-1"`))
		Expect(string(data)).To(ContainSubstring(`"source"`))
	})

	It("reports a log file that cannot be opened", func() {
		s.Config.Log.Debug = true
		blocker := filepath.Join(GinkgoT().TempDir(), "file")
		Expect(os.WriteFile(blocker, nil, 0o600)).To(Succeed())
		s.DotDir = filepath.Join(blocker, "sub")

		_, _, err := s.FileLogger("hook.log")
		Expect(err).To(HaveOccurred())
	})
})
