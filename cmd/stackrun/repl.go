package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const replHelp = `Type a task to plan and run it. Commands:
  /context   show the gathered context
  /pending   show operations still on the stack
  /resume    continue pending operations
  /clear     forget the context and drop pending operations
  /quit      exit`

const contextPreviewChars = 600

// repl reads tasks from stdin until EOF, /quit or cancellation.
func (a *app) repl(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, titleStyle.Render("stackrun")+mutedStyle.Render(" · type a task, /help for commands"))
	if n := a.memory.Len(); n > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d context item(s) loaded from the last session", n)))
	}

	for ctx.Err() == nil {
		fmt.Fprint(w, promptPrefix)
		line, err := a.stdin.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(w)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(w, replHelp)
		case "/context":
			renderMemory(w, a.memory.Snapshot(), contextPreviewChars)
		case "/pending":
			renderPending(w, a.engine.Pending())
		case "/resume":
			outcome, err := a.engine.Drain(ctx)
			a.renderer.Flush()
			if err != nil {
				fmt.Fprintln(w, errorStyle.Render("error: ")+err.Error())
				continue
			}
			reportOutcome(w, outcome, a.engine.Len())
		case "/clear":
			a.engine.Reset()
			if err := a.memory.Clear(ctx); err != nil {
				fmt.Fprintln(w, errorStyle.Render("error: ")+err.Error())
				continue
			}
			fmt.Fprintln(w, mutedStyle.Render("context cleared"))
		default:
			if strings.HasPrefix(input, "/") {
				fmt.Fprintf(w, "unknown command %s\n%s\n", input, replHelp)
				continue
			}
			if err := a.handle(ctx, input); err != nil {
				fmt.Fprintln(w, errorStyle.Render("error: ")+err.Error())
			}
		}
	}
	return nil
}
