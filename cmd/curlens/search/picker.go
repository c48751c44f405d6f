package searchcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/curlens/pkg/cliui"
	"github.com/papercomputeco/curlens/pkg/search"
)

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Number key.Binding
	Quit   key.Binding
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Number, k.Enter, k.Quit}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up}, {k.Number, k.Enter, k.Quit}}
}

func defaultKeyMap() pickerKeyMap {
	return pickerKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "resume")),
		Number: key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "pick")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
	}
}

type pickerStyles struct {
	cursor lipgloss.Style
	header lipgloss.Style
}

func newPickerStyles(r *lipgloss.Renderer) pickerStyles {
	return pickerStyles{
		cursor: r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		header: r.NewStyle().Foreground(lipgloss.Color("246")),
	}
}

type pickerModel struct {
	output *search.Output
	now    time.Time
	cursor int
	chosen int
	width  int
	keys   pickerKeyMap
	help   help.Model
	styles pickerStyles
}

func newPickerModel(out *search.Output, now time.Time, width int, r *lipgloss.Renderer) pickerModel {
	return pickerModel{
		output: out,
		now:    now,
		chosen: -1,
		width:  width,
		keys:   defaultKeyMap(),
		help:   help.New(),
		styles: newPickerStyles(r),
	}
}

func (m pickerModel) Init() bubbletea.Cmd {
	return nil
}

func (m pickerModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m pickerModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.chosen = -1
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.output.Results)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Enter):
		m.chosen = m.cursor
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Number):
		n := int(msg.String()[0] - '0')
		if n <= len(m.output.Results) {
			m.chosen = n - 1
			return m, bubbletea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder

	if m.output.WindowLifted {
		b.WriteString(cliui.WarnStyle.Render("Nothing recent matched, showing older sessions."))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.header.Render(fmt.Sprintf("%d sessions for %q", len(m.output.Results), m.output.Query)))
	b.WriteString("\n\n")

	for i, r := range m.output.Results {
		marker := "  "
		if i == m.cursor {
			marker = m.styles.cursor.Render("▌ ")
		}
		for _, line := range strings.Split(strings.TrimRight(cliui.RenderResult(r, m.now, m.width-2), "\n"), "\n") {
			b.WriteString(marker)
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// runPicker shows the results and returns the 0-based index chosen, or -1
// when the user cancels.
func runPicker(ctx context.Context, out *search.Output, width int) (int, error) {
	return pick(ctx, out, width, os.Stdin, os.Stdout)
}

func pick(ctx context.Context, out *search.Output, width int, in io.Reader, w io.Writer) (int, error) {
	profile := termenv.NewOutput(w).EnvColorProfile()
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))

	model := newPickerModel(out, time.Now(), width, renderer)
	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithInput(in),
		bubbletea.WithOutput(w),
	)

	final, err := program.Run()
	if err != nil {
		return -1, err
	}
	return final.(pickerModel).chosen, nil
}
