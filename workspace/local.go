package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultIgnorePatterns are directory names never searched.
var DefaultIgnorePatterns = []string{".git", "node_modules", "target", "vendor", "dist", "build", ".idea", ".vscode"}

// DefaultExtensions are the file extensions Lookup considers.
var DefaultExtensions = []string{
	".go", ".rs", ".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".rb", ".c", ".h", ".cpp",
	".md", ".txt", ".toml", ".yaml", ".yml", ".json", ".sh", ".sql", ".mod",
}

// Options configures a Local environment.
type Options struct {
	IgnorePatterns []string
	Extensions     []string
	MaxFileBytes   int64
	CacheSize      int
}

func (o *Options) applyDefaults() {
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = DefaultIgnorePatterns
	}
	if o.Extensions == nil {
		o.Extensions = DefaultExtensions
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = 1 << 20
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
}

type cachedFile struct {
	modTime time.Time
	size    int64
	content string
}

// Local runs everything on the local machine, rooted at a working directory.
type Local struct {
	root  string
	opts  Options
	cache *lru.Cache[string, cachedFile]
}

var _ Environment = (*Local)(nil)

// NewLocal creates a Local environment. An empty root means the current
// directory.
func NewLocal(root string, opts Options) (*Local, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	opts.applyDefaults()
	cache, err := lru.New[string, cachedFile](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create read cache: %w", err)
	}
	return &Local{root: abs, opts: opts, cache: cache}, nil
}

func (l *Local) WorkingDirectory() string { return l.root }

func (l *Local) Platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.root, path)
}

func (l *Local) rel(path string) string {
	if r, err := filepath.Rel(l.root, path); err == nil {
		return r
	}
	return path
}

// ReadFile returns the file's content. Reads are cached by path and
// invalidated when size or modification time changes.
func (l *Local) ReadFile(path string) (string, error) {
	resolved := l.resolve(path)
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("read %s: is a directory", path)
	}
	if info.Size() > l.opts.MaxFileBytes {
		return "", fmt.Errorf("read %s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	if c, ok := l.cache.Get(resolved); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.content, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	l.cache.Add(resolved, cachedFile{modTime: info.ModTime(), size: info.Size(), content: content})
	return content, nil
}

// WriteFile replaces the file's content, creating parent directories.
func (l *Local) WriteFile(path, content string) error {
	resolved := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	l.cache.Remove(resolved)
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (l *Local) FileExists(path string) bool {
	_, err := os.Stat(l.resolve(path))
	return err == nil
}

// Exec runs command through bash in the root directory. The child gets its
// own process group so cancellation kills everything it spawned.
func (l *Local) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", command)
	cmd.Dir = l.root
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.TimedOut = true
			result.ExitCode = -1
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("run command: %w", err)
		}
	}
	return result, nil
}

// Grep searches file contents under the root with ripgrep, falling back to
// grep. No matches is an empty result, not an error.
func (l *Local) Grep(ctx context.Context, pattern string, opts GrepOptions) (string, error) {
	var cmd *exec.Cmd
	if rg, err := exec.LookPath("rg"); err == nil {
		args := []string{"--line-number", "--no-heading"}
		if opts.CaseInsensitive {
			args = append(args, "-i")
		}
		if opts.MaxResults > 0 {
			args = append(args, "--max-count", fmt.Sprint(opts.MaxResults))
		}
		for _, ignore := range l.opts.IgnorePatterns {
			args = append(args, "--glob", "!"+ignore)
		}
		args = append(args, "-e", pattern, ".")
		cmd = exec.CommandContext(ctx, rg, args...)
	} else {
		args := []string{"-rnE"}
		if opts.CaseInsensitive {
			args = append(args, "-i")
		}
		for _, ignore := range l.opts.IgnorePatterns {
			args = append(args, "--exclude-dir="+ignore)
		}
		args = append(args, "-e", pattern, ".")
		cmd = exec.CommandContext(ctx, "grep", args...)
	}
	cmd.Dir = l.root

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return "", fmt.Errorf("grep %q: %w", pattern, err)
		}
	}
	return stdout.String(), nil
}

// Glob matches pattern (with ** support) against regular files under the
// root and returns sorted root-relative paths, skipping ignored directories.
func (l *Local) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(filepath.Join(l.root, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	var out []string
	for _, m := range matches {
		rel := l.rel(m)
		if l.ignored(rel) {
			continue
		}
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// Lookup implements Environment. Files with a supported extension whose path
// contains every term are ranked by how many terms appear in the base name,
// then by path length.
func (l *Local) Lookup(query string, limit int) ([]string, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	all, err := l.Glob("**/*")
	if err != nil {
		return nil, err
	}

	type candidate struct {
		path  string
		score int
	}
	var found []candidate
	for _, p := range all {
		if !l.supported(p) {
			continue
		}
		lower := strings.ToLower(p)
		base := strings.ToLower(filepath.Base(p))
		score, ok := 0, true
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				ok = false
				break
			}
			if strings.Contains(base, term) {
				score++
			}
		}
		if ok {
			found = append(found, candidate{path: p, score: score})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return len(found[i].path) < len(found[j].path)
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}

func (l *Local) ignored(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range l.opts.IgnorePatterns {
			if ok, _ := doublestar.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}

func (l *Local) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

var sensitiveEnvSuffixes = []string{"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL"}

// filterEnvironment drops credentials from the child environment.
func filterEnvironment() []string {
	var env []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		upper := strings.ToUpper(name)
		sensitive := false
		for _, suffix := range sensitiveEnvSuffixes {
			if strings.HasSuffix(upper, suffix) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			env = append(env, kv)
		}
	}
	return env
}
