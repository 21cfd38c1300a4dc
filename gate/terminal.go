package gate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/stackrun/subtask"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFC107"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	promptStyle = lipgloss.NewStyle().Faint(true)
)

// Terminal asks on out and reads the answer from in. An empty answer or
// "y"/"yes" approves; anything else, or a failed read, declines.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

var _ subtask.Gate = (*Terminal)(nil)

// NewTerminal creates a Terminal gate.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Confirm(ctx context.Context, a subtask.Approval) bool {
	if ctx.Err() != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s %s\n  %s %s ",
		a.Icon,
		headerStyle.Render("Approve "+strings.ReplaceAll(string(a.Category), "_", " ")+"?"),
		detailStyle.Render(a.Description),
		promptStyle.Render("[Y/n]"),
	)

	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
		fmt.Fprintln(t.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	}
	return false
}
