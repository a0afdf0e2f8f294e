package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/loomworks/agentpool/internal/config"
	"github.com/loomworks/agentpool/internal/taskfile"
	"github.com/loomworks/agentpool/internal/tui"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live dashboard of pool state",
	Long: `Start the pool and show a live dashboard of agents, queue depth, and
recent events. With --tasks, the given task file is submitted and simulated
so the dashboard has work to display.`,
	RunE: runTop,
}

var topTasksFile string

func init() {
	topCmd.Flags().StringVarP(&topTasksFile, "tasks", "t", "", "YAML task file to submit and simulate")
	rootCmd.AddCommand(topCmd)
}

func runTop(cmd *cobra.Command, args []string) error {
	var specs []taskfile.Spec
	if topTasksFile != "" {
		var err error
		specs, err = taskfile.Load(topTasksFile)
		if err != nil {
			return err
		}
	}

	p, logger, err := buildPool()
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runHeartbeats(ctx, p)

	if len(specs) > 0 {
		startDriver(ctx, p, specs)
		for _, s := range specs {
			if _, err := p.Submit(s.ID, s.Priority, s.Payload); err != nil {
				fmt.Fprintf(os.Stderr, "submit %s: %v\n", s.ID, err)
			}
		}
	}

	program := tea.NewProgram(tui.NewModel(p), tea.WithAltScreen())
	_, runErr := program.Run()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		config.Get().GracefulShutdownTimeout()+2*time.Second)
	defer cancelShutdown()
	if err := p.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
