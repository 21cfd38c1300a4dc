package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/martinemde/stackrun/workspace"
)

const plannerSystemPrompt = `You are a software engineering assistant working inside a project on the user's machine.
Break the user's task into a short sequence of concrete steps using the available tools.

Guidelines:
- Search before reading when you do not know where something lives.
- Read the files you need before changing or explaining them.
- Update files and run shell commands only when the task calls for it; the user is asked to approve each one.
- Use run_task only for a sub-task large enough to need its own plan.
- When the task is a question, finish with a single explain step.
- Do not repeat steps whose results are already in the context.`

const revisitPrompt = `The steps planned earlier for this task have finished and their results are in the context above.
List only the steps still needed to complete the task. If nothing remains, say so and call no tools.`

const structuredPrompt = `Now call the tools for the plan above, in the order they should run.`

const explainSystemPrompt = `You answer questions about a software project using only the context gathered so far.
Be specific: name files, functions and commands. If the context does not contain the answer, say what is missing.`

const updateSystemPrompt = `You edit a single file as instructed.
Reply with the complete new content of the file and nothing else: no explanation and no surrounding code fence.`

const chooseFileSystemPrompt = `You pick the file that best matches a description. Reply with exactly one path from the list and nothing else.`

const gitTimeout = 2 * time.Second

// environmentContext describes the workspace to the planner.
func environmentContext(ctx context.Context, env workspace.Environment, model string) string {
	branch := gitOutput(ctx, env, "git rev-parse --abbrev-ref HEAD")

	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", env.WorkingDirectory())
	fmt.Fprintf(&sb, "Is git repository: %v\n", branch != "")
	if branch != "" {
		fmt.Fprintf(&sb, "Git branch: %s\n", branch)
	}
	fmt.Fprintf(&sb, "Platform: %s\n", env.Platform())
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", model)
	}
	sb.WriteString("</environment>")

	if branch != "" {
		if log := gitOutput(ctx, env, "git log --oneline -5"); log != "" {
			sb.WriteString("\n<git_context>\nRecent commits:\n")
			sb.WriteString(log)
			sb.WriteString("\n</git_context>")
		}
	}
	return sb.String()
}

func gitOutput(ctx context.Context, env workspace.Environment, command string) string {
	res, err := env.Exec(ctx, command, gitTimeout)
	if err != nil || res.ExitCode != 0 || res.TimedOut {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// stripCodeFence removes a single fence wrapping the whole text, which models
// add despite being asked not to.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return s
	}
	body := strings.TrimSuffix(trimmed, "```")
	newline := strings.IndexByte(body, '\n')
	if newline < 0 {
		return s
	}
	return strings.TrimRight(body[newline+1:], " \t\n") + "\n"
}
