package hookcmder

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("install", func() {
	var path string

	const command = "/usr/local/bin/curlens hook"

	read := func() map[string]any {
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		doc := map[string]any{}
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		return doc
	}

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "cursor", "hooks.json")
	})

	It("creates hooks.json with every event", func() {
		added, err := install(path, command)
		Expect(err).NotTo(HaveOccurred())
		Expect(added).To(ConsistOf("afterShellExecution", "afterMCPExecution", "afterFileEdit"))

		doc := read()
		Expect(doc["version"]).To(BeNumerically("==", 1))
		hooks := doc["hooks"].(map[string]any)
		Expect(hooks["afterFileEdit"]).To(ConsistOf(map[string]any{"command": command}))
	})

	It("is idempotent", func() {
		_, err := install(path, command)
		Expect(err).NotTo(HaveOccurred())

		added, err := install(path, command)
		Expect(err).NotTo(HaveOccurred())
		Expect(added).To(BeEmpty())

		hooks := read()["hooks"].(map[string]any)
		Expect(hooks["afterShellExecution"]).To(HaveLen(1))
	})

	It("keeps existing hooks and accepts comments", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		existing := `{
  // managed by hand
  "version": 1,
  "hooks": {
    "afterFileEdit": [{"command": "./format.sh"}],
    "beforeSubmitPrompt": [{"command": "./audit.sh"}],
  },
}`
		Expect(os.WriteFile(path, []byte(existing), 0o600)).To(Succeed())

		_, err := install(path, command)
		Expect(err).NotTo(HaveOccurred())

		hooks := read()["hooks"].(map[string]any)
		Expect(hooks["afterFileEdit"]).To(ConsistOf(
			map[string]any{"command": "./format.sh"},
			map[string]any{"command": command},
		))
		Expect(hooks["beforeSubmitPrompt"]).To(HaveLen(1))
	})

	It("refuses a malformed hooks section", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(`{"hooks": []}`), 0o600)).To(Succeed())

		_, err := install(path, command)
		Expect(err).To(MatchError(ContainSubstring("not an object")))
	})
})
