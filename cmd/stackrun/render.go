package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935"))
	sourceStyle  = lipgloss.NewStyle().Bold(true)
	promptPrefix = titleStyle.Render("stackrun") + mutedStyle.Render(" › ")
)

var icons = map[string]string{
	string(subtask.KindRunTask):         subtask.RunTask{}.Icon(),
	string(subtask.KindReadFile):        subtask.ReadFile{}.Icon(),
	string(subtask.KindSearchFiles):     subtask.SearchFiles{}.Icon(),
	string(subtask.KindUpdateFile):      subtask.UpdateFile{}.Icon(),
	string(subtask.KindRunShellCommand): subtask.RunShellCommand{}.Icon(),
	string(subtask.KindExplain):         subtask.Explain{}.Icon(),
}

// renderEvent prints the progress lines a user cares about.
func renderEvent(w io.Writer, ev subtask.Event) {
	switch ev.Kind {
	case subtask.EventDispatchStart:
		depth, _ := ev.Data["depth"].(int)
		kind, _ := ev.Data["kind"].(string)
		desc, _ := ev.Data["description"].(string)
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), icons[kind], stepStyle.Render(desc))
	case subtask.EventFailed:
		desc, _ := ev.Data["description"].(string)
		msg, _ := ev.Data["error"].(string)
		fmt.Fprintf(w, "  %s %s: %s\n", errorStyle.Render("failed"), desc, msg)
	case subtask.EventDeclined:
		desc, _ := ev.Data["description"].(string)
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("declined"), desc)
	case subtask.EventLoopDetected:
		fmt.Fprintln(w, warnStyle.Render("repeating steps detected, not expanding further"))
	case subtask.EventBudgetExhausted:
		fmt.Fprintln(w, warnStyle.Render("step budget reached, finishing pending work"))
	case subtask.EventDepthLimit:
		fmt.Fprintln(w, mutedStyle.Render("depth limit reached, not planning deeper"))
	}
}

// renderMemory prints every fragment with its source.
func renderMemory(w io.Writer, fragments []memory.Fragment, maxChars int) {
	if len(fragments) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No context gathered yet."))
		return
	}
	for i, f := range fragments {
		header := fmt.Sprintf("#%d %s", i+1, f.Source)
		if f.Metadata != nil && f.Metadata.Path != "" {
			header += " " + f.Metadata.Path
		}
		fmt.Fprintln(w, sourceStyle.Render(header))
		fmt.Fprintln(w, memory.Truncate(f.Content, maxChars, memory.TruncateHeadTail))
		fmt.Fprintln(w)
	}
}

// renderPending lists the work still on the stack, next first.
func renderPending(w io.Writer, items []subtask.WorkItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nothing pending."))
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", it.Depth), it.Operation.Icon(), it.Operation.Description())
	}
}

// eventRenderer prints engine events on its own goroutine so progress shows
// while a capability is still running.
type eventRenderer struct {
	out     io.Writer
	events  <-chan subtask.Event
	flushes chan chan struct{}
	done    chan struct{}
}

func startEventRenderer(out io.Writer, events <-chan subtask.Event) *eventRenderer {
	r := &eventRenderer{
		out:     out,
		events:  events,
		flushes: make(chan chan struct{}),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *eventRenderer) loop() {
	defer close(r.done)
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			renderEvent(r.out, ev)
		case ack := <-r.flushes:
			open := r.renderBuffered()
			close(ack)
			if !open {
				return
			}
		}
	}
}

// renderBuffered prints every event already queued. It reports false once
// the channel is closed.
func (r *eventRenderer) renderBuffered() bool {
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return false
			}
			renderEvent(r.out, ev)
		default:
			return true
		}
	}
}

// Flush blocks until every event emitted before the call has been printed.
func (r *eventRenderer) Flush() {
	if r == nil {
		return
	}
	ack := make(chan struct{})
	select {
	case r.flushes <- ack:
		<-ack
	case <-r.done:
	}
}

// Wait blocks until the event channel is closed and drained.
func (r *eventRenderer) Wait() {
	if r != nil {
		<-r.done
	}
}

// flushedGate prints pending progress before asking, so the prompt is the
// last thing on screen.
type flushedGate struct {
	subtask.Gate
	flush func()
}

func (g flushedGate) Confirm(ctx context.Context, a subtask.Approval) bool {
	g.flush()
	return g.Gate.Confirm(ctx, a)
}
