package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/loomworks/agentpool/internal/config"
	"github.com/loomworks/agentpool/internal/event"
	"github.com/loomworks/agentpool/internal/logging"
	"github.com/loomworks/agentpool/internal/pool"
	"github.com/loomworks/agentpool/internal/taskfile"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pool against a task file",
	Long: `Start the pool, submit every task from the given YAML task file, and
simulate agent execution: each dispatched task runs for its configured
duration and then reports success or failure. The command exits when all
tasks reach a terminal state, or drains gracefully on interrupt.`,
	RunE: runRun,
}

var runTasksFile string

func init() {
	runCmd.Flags().StringVarP(&runTasksFile, "tasks", "t", "", "YAML task file to submit (required)")
	_ = runCmd.MarkFlagRequired("tasks")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	specs, err := taskfile.Load(runTasksFile)
	if err != nil {
		return err
	}

	p, logger, err := buildPool()
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := startDriver(ctx, p, specs)

	heartbeatCtx, stopHeartbeats := context.WithCancel(context.Background())
	defer stopHeartbeats()
	go runHeartbeats(heartbeatCtx, p)

	fmt.Printf("Submitting %d tasks to the pool\n", len(specs))
	for _, s := range specs {
		if _, err := p.Submit(s.ID, s.Priority, s.Payload); err != nil {
			fmt.Fprintf(os.Stderr, "submit %s: %v\n", s.ID, err)
		}
	}

	select {
	case <-done:
		fmt.Println("All tasks finished")
	case <-ctx.Done():
		fmt.Println("\nInterrupted, draining pool")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.Get().GracefulShutdownTimeout()+2*time.Second)
	defer cancel()
	shutdownErr := p.Shutdown(shutdownCtx)

	printSummary(p.Stats())
	return shutdownErr
}

// buildPool assembles a pool from the loaded configuration.
func buildPool() (*pool.Pool, *logging.Logger, error) {
	cfg := config.Get()
	if verrs := cfg.Validate(); len(verrs) > 0 {
		for _, verr := range verrs {
			fmt.Fprintf(os.Stderr, "config: %s\n", verr.Error())
		}
		return nil, nil, fmt.Errorf("invalid configuration (%d errors)", len(verrs))
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		var err error
		logger, err = logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	p, err := pool.New(cfg, pool.WithLogger(logger))
	if err != nil {
		logger.Close()
		return nil, nil, err
	}

	// A running pool keeps its construction-time configuration; surface
	// file edits so the operator knows a restart is needed.
	config.Watch(func(e fsnotify.Event) {
		logger.Warn("config file changed; restart to apply", "file", e.Name)
	})

	return p, logger, nil
}

// startDriver simulates agent execution: every dispatched task runs for its
// spec'd duration and then reports its outcome. The returned channel closes
// once every spec reaches a terminal state.
func startDriver(ctx context.Context, p *pool.Pool, specs []taskfile.Spec) <-chan struct{} {
	// Assign IDs up front so dispatch events can be matched to specs.
	byID := make(map[string]taskfile.Spec, len(specs))
	for i := range specs {
		if specs[i].ID == "" {
			specs[i].ID = fmt.Sprintf("task-%03d", i+1)
		}
		byID[specs[i].ID] = specs[i]
	}

	done := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	remaining := len(specs)

	p.Bus().Subscribe("task.dispatched", func(e event.Event) {
		de, ok := e.(event.TaskDispatchedEvent)
		if !ok {
			return
		}
		spec, ok := byID[de.TaskID]
		if !ok {
			return
		}
		go func() {
			select {
			case <-time.After(spec.Duration()):
			case <-ctx.Done():
				return
			}
			reason := ""
			if spec.Fail {
				reason = "simulated failure"
			}
			if err := p.Complete(de.AgentID, !spec.Fail, reason); err != nil {
				fmt.Fprintf(os.Stderr, "complete %s: %v\n", de.TaskID, err)
			}
		}()
	})

	p.Bus().Subscribe("task.completed", func(e event.Event) {
		ce, ok := e.(event.TaskCompletedEvent)
		if !ok {
			return
		}
		if _, tracked := byID[ce.TaskID]; !tracked {
			return
		}
		mu.Lock()
		remaining--
		finished := remaining == 0
		mu.Unlock()
		if finished {
			once.Do(func() { close(done) })
		}
	})

	return done
}

// runHeartbeats keeps every agent's liveness fresh while the simulation runs.
func runHeartbeats(ctx context.Context, p *pool.Pool) {
	interval := config.Get().HeartbeatTimeout() / 2
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, a := range p.Agents() {
				_ = p.Heartbeat(a.ID)
			}
		}
	}
}

func printSummary(stats pool.Stats) {
	fmt.Println()
	fmt.Println("Pool summary:")
	fmt.Printf("  completed: %d\n", stats.Completed)
	fmt.Printf("  failed:    %d\n", stats.Failed)
	fmt.Printf("  uptime:    %s\n", stats.Uptime.Round(time.Millisecond))
}
