package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mockdcore/mockdcore/pkg/config"
	"github.com/mockdcore/mockdcore/pkg/core"
)

var (
	startConfigPath string
	startPorts      []int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mock server core and block until terminated",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startConfigPath, "config", "", "path to a YAML configuration file")
	startCmd.Flags().IntSliceVar(&startPorts, "port", nil, "port(s) to bind (repeatable); defaults to the configured ports")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		os.Exit(exitBadConfigured)
		return err
	}

	srv, err := core.New(cfg, nil)
	if err != nil {
		os.Exit(exitBadConfigured)
		return err
	}

	if err := srv.Start(startPorts); err != nil {
		fmt.Fprintln(os.Stderr, "failed to bind:", err)
		os.Exit(exitBindFailure)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if startConfigPath != "" {
		cfg, err = config.LoadFile(startConfigPath)
	} else {
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
