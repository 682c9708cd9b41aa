package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/warmup"
)

var healthMaxAttempts int

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Wait until the backend is ready",
	Long:  "Probe the backend's /health endpoint, polling while it cold-starts, until it answers or the attempt limit is reached.",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().IntVar(&healthMaxAttempts, "max-attempts", 0, "Give up after this many probes (0 keeps polling)")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg.WarmupMaxAttempts = healthMaxAttempts
	}

	a := newApp(cfg)
	defer a.Close()

	p := printer(cmd)
	var once sync.Once
	cancel := a.Gate.Subscribe(func(s warmup.State) {
		if s.Polling && !s.Ready {
			once.Do(func() { p.PrintWarmup(s) })
		}
	})
	defer cancel()

	a.Gate.Start(cmd.Context())
	waitErr := a.Gate.Wait(cmd.Context())
	p.PrintWarmup(a.Gate.State())
	if waitErr != nil {
		return fmt.Errorf("backend at %s is not ready: %w", cfg.TrimmedAPIURL(), waitErr)
	}
	return nil
}
