package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/stackrun/subtask"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	task := strings.Join(args, " ")
	logger.Info("running task", zap.String("task", task))
	return a.handle(ctx, task)
}

// handle pushes task and drains the engine, reporting how the run ended.
func (a *app) handle(ctx context.Context, task string) error {
	a.engine.PushTask(task)
	outcome, err := a.engine.Drain(ctx)
	a.renderer.Flush()
	if err != nil {
		return err
	}
	reportOutcome(a.out, outcome, a.engine.Len())
	return nil
}

func reportOutcome(w io.Writer, outcome subtask.RunOutcome, pending int) {
	switch outcome {
	case subtask.RunIdle:
		fmt.Fprintln(w, mutedStyle.Render("done"))
	case subtask.RunAborted:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("stopped with %d operation(s) pending", pending)))
	}
}

func runInteractive(parent context.Context) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.repl(ctx, os.Stdout)
}
