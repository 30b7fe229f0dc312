// Package agent invokes the external command-capable AI agent CLI.
// Calls are bounded by a hard timeout and every failure mode folds
// into the ExecutionResult, so a bad invocation can never abort a
// polling cycle.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultTimeout is the wall-clock bound on one agent invocation.
const DefaultTimeout = 120 * time.Second

// DefaultPreamble is prefixed to every instruction unless the
// configuration overrides it.
const DefaultPreamble = "You are an autonomous task executor. Complete the following task concisely and without asking questions: "

// errorMarker prefixes responses that record a failed invocation.
const errorMarker = "[ERROR]"

// ExecutionResult captures one agent invocation. Immutable after
// creation; consumed by the dispatcher and the conversation log.
type ExecutionResult struct {
	Success   bool
	Task      string
	Timestamp time.Time
	Response  string
	Duration  time.Duration
}

// Invoker shells out to the agent CLI.
type Invoker struct {
	bin       string
	workspace string
	preamble  string
	timeout   time.Duration
	logger    *slog.Logger

	// runCommand is swapped in tests to avoid spawning real processes.
	runCommand func(ctx context.Context, prompt string) (string, error)
}

// New creates an Invoker. preamble may be empty to use the default.
func New(bin, workspace, preamble string, logger *slog.Logger) *Invoker {
	if preamble == "" {
		preamble = DefaultPreamble
	}
	inv := &Invoker{
		bin:       bin,
		workspace: workspace,
		preamble:  preamble,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
	inv.runCommand = inv.runAgentProcess
	return inv
}

// SetTimeout overrides the invocation timeout. Primarily for tests.
func (inv *Invoker) SetTimeout(d time.Duration) {
	inv.timeout = d
}

// Execute runs the agent against one task. It never returns an error:
// timeout and spawn failures produce a failed ExecutionResult with an
// error marker, and empty output triggers the local fallback responder.
func (inv *Invoker) Execute(ctx context.Context, taskText string) ExecutionResult {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	inv.logger.Info("invoking agent", "bin", inv.bin, "task", taskText)

	raw, err := inv.runCommand(callCtx, inv.preamble+taskText)
	duration := time.Since(start)

	result := ExecutionResult{
		Task:      taskText,
		Timestamp: start,
		Duration:  duration,
	}

	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		result.Response = fmt.Sprintf("%s agent timed out after %s", errorMarker, inv.timeout)
		inv.logger.Warn("agent invocation timed out", "task", taskText, "timeout", inv.timeout)

	case err != nil:
		result.Response = fmt.Sprintf("%s agent invocation failed: %v", errorMarker, err)
		inv.logger.Warn("agent invocation failed", "task", taskText, "error", err)

	default:
		response := ParseStream(bytes.NewReader([]byte(raw)))
		if response == "" {
			// Non-fatal: the agent ran but produced no text.
			response = fallbackRespond(taskText)
			inv.logger.Info("agent produced no output, using fallback", "task", taskText)
		}
		result.Success = true
		result.Response = response
	}

	inv.logger.Info("agent invocation finished",
		"task", taskText,
		"success", result.Success,
		"duration", duration)

	return result
}

// runAgentProcess launches the agent CLI in non-interactive mode with
// auto-approval so it never blocks on a prompt, and returns raw stdout.
func (inv *Invoker) runAgentProcess(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, inv.bin,
		"agent",
		"--print",
		"--output-format", "stream-json",
		"--stream-partial-output",
		"--workspace", inv.workspace,
		"--approve-mcps",
		prompt,
	)
	cmd.Dir = inv.workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("agent exited with code %d: %s", exitErr.ExitCode(), bytes.TrimSpace(stderr.Bytes()))
		}
		return "", err
	}

	return stdout.String(), nil
}
