package searchcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/resume"
	"github.com/papercomputeco/curlens/pkg/search"
)

// prompt asks for a result number on a plain line. An empty answer or end
// of input cancels.
func prompt(in io.Reader, out io.Writer, results []search.Result) (resume.Target, error) {
	fmt.Fprintf(out, "\n%s ", cliui.AccentStyle.Render(fmt.Sprintf("Resume which session? [1-%d, enter to cancel]", len(results))))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return resume.Target{}, fmt.Errorf("reading selection: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return resume.Target{}, errCancelled
	}

	return resume.Select(results, line)
}
