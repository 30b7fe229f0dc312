// Package dispatch owns the poll-dispatch-log cycle: fetch pending
// tasks, run each one through the agent invoker, record the exchange,
// report the result back to the task source, and close the task.
// Tasks are processed strictly one at a time.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cronpilot/cronpilot/internal/agent"
	"github.com/cronpilot/cronpilot/internal/tasksource"
)

// TaskSource is the remote service holding pending work items.
type TaskSource interface {
	ListPending(ctx context.Context) ([]tasksource.Task, error)
	AddComment(ctx context.Context, taskID, content string) error
	CloseTask(ctx context.Context, taskID string) error
}

// Invoker executes a single task's text through the external agent.
type Invoker interface {
	Execute(ctx context.Context, taskText string) agent.ExecutionResult
}

// ConversationLog records each prompt/response exchange.
type ConversationLog interface {
	Append(prompt, response, taskID string) error
}

// Stats accumulates per-cycle counters. Monotonic for the lifetime of
// one Dispatcher; reset only by constructing a new one.
type Stats struct {
	TotalProcessed int
	Successful     int
	Failed         int
	StartTime      time.Time
}

// Dispatcher runs polling cycles against a task source.
type Dispatcher struct {
	source TaskSource
	agent  Invoker
	clog   ConversationLog
	logger *slog.Logger
	out    io.Writer

	// mu guards stats: cycles run on one goroutine, but Snapshot may
	// be called from another (signal handling, tests).
	mu    sync.Mutex
	stats Stats
}

// New creates a Dispatcher. Statistics start at zero with StartTime
// set to now.
func New(source TaskSource, inv Invoker, clog ConversationLog, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		source: source,
		agent:  inv,
		clog:   clog,
		logger: logger,
		out:    os.Stdout,
		stats:  Stats{StartTime: time.Now()},
	}
}

// SetOutput redirects the human-readable summary. Tests use this.
func (d *Dispatcher) SetOutput(w io.Writer) {
	d.out = w
}

// Snapshot returns a copy of the current statistics.
func (d *Dispatcher) Snapshot() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// RunOnce performs exactly one polling cycle. Per-task failures are
// counted and never abort the remainder of the cycle; a fetch failure
// is reported, counted, and treated as zero tasks.
func (d *Dispatcher) RunOnce(ctx context.Context) {
	cycleID := "cycle-" + uuid.New().String()[:8]
	log := d.logger.With("cycle", cycleID)

	log.Info("polling cycle started")

	tasks, err := d.source.ListPending(ctx)
	if err != nil {
		log.Error("failed to fetch tasks", "error", err)
		d.mu.Lock()
		d.stats.Failed++
		d.mu.Unlock()
		return
	}

	if len(tasks) == 0 {
		log.Info("no pending tasks")
		return
	}

	for _, task := range tasks {
		d.processTask(ctx, log, cycleID, task)
	}

	d.printSummary()
}

// processTask runs one task through the agent and reports back. The
// task is closed regardless of invocation outcome; a failed invocation
// is communicated through the comment, not by leaving the task open.
func (d *Dispatcher) processTask(ctx context.Context, log *slog.Logger, cycleID string, task tasksource.Task) {
	log.Info("processing task", "task_id", task.ID, "content", task.Content)

	result := d.agent.Execute(ctx, task.Content)

	if err := d.clog.Append(task.Content, result.Response, task.ID); err != nil {
		log.Warn("failed to append conversation log", "task_id", task.ID, "error", err)
	}

	if err := d.source.AddComment(ctx, task.ID, formatComment(result, cycleID)); err != nil {
		log.Warn("failed to post result comment", "task_id", task.ID, "error", err)
	}

	if err := d.source.CloseTask(ctx, task.ID); err != nil {
		log.Warn("failed to close task", "task_id", task.ID, "error", err)
	}

	d.mu.Lock()
	d.stats.TotalProcessed++
	if result.Success {
		d.stats.Successful++
	} else {
		d.stats.Failed++
	}
	d.mu.Unlock()

	if result.Success {
		log.Info("task completed", "task_id", task.ID, "duration", result.Duration)
	} else {
		log.Warn("task failed", "task_id", task.ID, "response", result.Response)
	}
}

// RunForever performs one cycle immediately, then repeats every
// interval inside the same process until ctx is cancelled. Cycles
// never overlap, and an in-flight cycle runs to completion even when
// an interrupt arrives mid-cycle.
func (d *Dispatcher) RunForever(ctx context.Context, interval time.Duration) error {
	d.logger.Info("continuous mode", "interval", interval)

	// Interrupts stop the loop between cycles; they do not cancel an
	// in-flight agent invocation.
	d.RunOnce(context.Background())

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", int(interval.Seconds())), func() {
		d.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule polling cycle: %w", err)
	}

	c.Start()
	<-ctx.Done()

	// Wait for a running cycle to finish before reporting.
	stopCtx := c.Stop()
	<-stopCtx.Done()

	d.logger.Info("continuous mode stopped")
	d.printSummary()
	return nil
}

func (d *Dispatcher) printSummary() {
	stats := d.Snapshot()
	uptime := time.Since(stats.StartTime).Round(time.Second)

	fmt.Fprintln(d.out, "--------------------------------------------------")
	fmt.Fprintln(d.out, "Statistics:")
	fmt.Fprintf(d.out, "  Total tasks: %d\n", stats.TotalProcessed)
	fmt.Fprintf(d.out, "  Successful:  %d\n", stats.Successful)
	fmt.Fprintf(d.out, "  Failed:      %d\n", stats.Failed)
	fmt.Fprintf(d.out, "  Uptime:      %s\n", uptime)
	fmt.Fprintln(d.out, "--------------------------------------------------")
}

func formatComment(result agent.ExecutionResult, cycleID string) string {
	status := "Success"
	if !result.Success {
		status = "Failed"
	}

	return fmt.Sprintf(`Execution Result:
- Status: %s
- Response: %s
- Time: %s
- Duration: %s
- Cycle: %s`,
		status,
		result.Response,
		result.Timestamp.Format("15:04:05"),
		result.Duration.Round(time.Millisecond),
		cycleID,
	)
}
