package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/martinemde/stackrun/capability"
	"github.com/martinemde/stackrun/config"
	"github.com/martinemde/stackrun/gate"
	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
	"github.com/martinemde/stackrun/workspace"
)

// app holds everything one CLI invocation needs.
type app struct {
	engine *subtask.Engine
	memory *memory.ContextMemory
	client *llm.Client
	store  *memory.SQLiteStore
	events *subtask.EventEmitter
	stdin  *bufio.Reader
	out    io.Writer

	renderer *eventRenderer
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{stdin: bufio.NewReader(os.Stdin), out: os.Stdout}

	env, err := workspace.NewLocal(cfg.Workspace.Root, workspace.Options{
		IgnorePatterns: cfg.Workspace.IgnorePatterns,
		Extensions:     cfg.Workspace.SupportedExtensions,
		MaxFileBytes:   cfg.Workspace.MaxFileBytes,
	})
	if err != nil {
		return nil, err
	}

	mem, store, err := openMemory(ctx, cfg, env.WorkingDirectory(), logger)
	if err != nil {
		return nil, err
	}
	a.memory, a.store = mem, store

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	g, err := selectGate(cfg.Approval, a.stdin, a.out, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.events = subtask.NewEventEmitter(0)
	a.renderer = startEventRenderer(a.out, a.events.Events())
	g = flushedGate{Gate: g, flush: a.renderer.Flush}

	model := cfg.LLM.Model
	if model == "" {
		model = llm.DefaultModel(cfg.LLM.Provider)
	}
	registry := capability.NewRegistry(capability.Options{
		Env:              env,
		Out:              a.out,
		Logger:           logger.Named("capability"),
		Model:            model,
		MaxFragmentChars: cfg.Memory.MaxFragmentChars,
		ShellTimeout:     cfg.ShellTimeout(),
	})

	a.engine, err = subtask.New(registry, subtask.Deps{LLM: client, Memory: mem}, g, subtask.Config{
		MaxDepth:    cfg.Engine.MaxDepth,
		MaxRevisits: cfg.Engine.MaxRevisits,
		MaxSteps:    cfg.Engine.MaxSteps,
		LoopWindow:  cfg.Engine.LoopWindow,
		ToolTimeout: cfg.ToolTimeout(),
	}, subtask.WithLogger(logger.Named("engine")), subtask.WithEvents(a.events))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close stops event rendering and releases the model client and store.
func (a *app) Close() error {
	if a.events != nil {
		a.events.Close()
		a.renderer.Wait()
	}
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// openMemory creates context memory, mirrored into SQLite when a path is
// configured. A relative path is resolved against the workspace root.
func openMemory(ctx context.Context, cfg *config.Config, root string, logger *zap.Logger) (*memory.ContextMemory, *memory.SQLiteStore, error) {
	if cfg.Memory.Path == "" {
		return memory.New(memory.WithLogger(logger)), nil, nil
	}
	path := cfg.Memory.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create memory directory: %w", err)
	}
	store, err := memory.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	mem := memory.New(memory.WithSink(store), memory.WithLogger(logger.Named("memory")))
	if err := mem.Load(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Debug("memory loaded", zap.String("path", path), zap.Int("fragments", mem.Len()))
	return mem, store, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*llm.Client, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	provider := cfg.LLM.Provider
	model := cfg.LLM.Model
	if model == "" {
		model = llm.DefaultModel(provider)
	}

	var adapter llm.ProviderAdapter
	switch provider {
	case "gemini":
		adapter, err = llm.NewGeminiAdapter(ctx, key, model)
	default:
		adapter, err = llm.NewGollmAdapter(provider, key,
			llm.WithModel(model),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithTemperature(cfg.LLM.Temperature),
		)
	}
	if err != nil {
		return nil, err
	}

	llmLogger := logger.Named("llm")
	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		llmLogger.Warn("retrying llm call", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	}

	return llm.NewClient(
		llm.WithProvider(provider, adapter),
		llm.WithDefaultProvider(provider),
		llm.WithDefaultModel(model),
		llm.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
		llm.WithMiddleware(
			llm.LoggingMiddleware(llmLogger),
			llm.RetryMiddleware(policy),
			llm.TimeoutMiddleware(cfg.LLMTimeout()),
		),
	), nil
}

// selectGate builds the configured approval gate. Prompting needs a
// terminal; without one the gate falls back to auto-approval and says so.
func selectGate(mode string, in io.Reader, out io.Writer, logger *zap.Logger) (subtask.Gate, error) {
	m, err := gate.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	switch m {
	case gate.ModeAuto:
		return gate.AutoApprove{Logger: logger}, nil
	case gate.ModeDeny:
		return gate.Deny{}, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Warn("stdin is not a terminal, falling back to auto-approve")
		return gate.AutoApprove{Logger: logger}, nil
	}
	return gate.NewTerminal(in, out), nil
}
