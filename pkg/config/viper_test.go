package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/curlens/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("summarizer.model")).To(Equal("grok"))
		Expect(v.GetUint("summarizer.max_words")).To(Equal(uint(70)))
		Expect(v.GetBool("hooks.enabled")).To(BeTrue())
		Expect(v.GetString("api.listen")).To(Equal(":8082"))
	})

	It("reads config file values over defaults", func() {
		data := `[search]
model = "sonnet"
window_days = 5
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("search.model")).To(Equal("sonnet"))
		Expect(v.GetUint("search.window_days")).To(Equal(uint(5)))
		Expect(v.GetUint("search.max_results")).To(Equal(uint(3)))
	})

	It("respects environment variables with CURLENS_ prefix", func() {
		GinkgoT().Setenv("CURLENS_LOG_DEBUG", "true")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetBool("log.debug")).To(BeTrue())
	})

	It("env vars take precedence over config file values", func() {
		data := `[summarizer]
model = "claude"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("CURLENS_SUMMARIZER_MODEL", "gpt")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("summarizer.model")).To(Equal("gpt"))
	})

	It("materializes the effective config", func() {
		GinkgoT().Setenv("CURLENS_BACKFILL_WORKERS", "8")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		expected := config.NewDefaultConfig()
		expected.Backfill.Workers = 8
		Expect(cfg).To(Equal(expected))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	fs := config.FlagSet{
		config.FlagWindowDays: {Name: "window-days", Shorthand: "w", ViperKey: "search.window_days", Description: "Only consider sessions updated within this many days"},
		config.FlagAPIListen:  {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, fs, config.FlagAPIListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[search]
window_days = 9
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var days uint
		config.AddUintFlag(cmd, fs, config.FlagWindowDays, &days)
		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagWindowDays})

		Expect(v.GetUint("search.window_days")).To(Equal(uint(9)))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, fs, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(":8082"))
	})

	It("pulls name, shorthand, default and description from the FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var days uint
		config.AddUintFlag(cmd, fs, config.FlagWindowDays, &days)

		f := cmd.Flags().Lookup("window-days")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("w"))
		Expect(f.DefValue).To(Equal("20"))
		Expect(f.Usage).To(Equal("Only consider sessions updated within this many days"))
	})
})
