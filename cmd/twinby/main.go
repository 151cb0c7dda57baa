package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/tinkering/twinby/internal/app"
	"github.com/tinkering/twinby/internal/config"
	"github.com/tinkering/twinby/internal/tui"
	"github.com/tinkering/twinby/internal/workspace"
)

func main() {
	workspaceFlag := flag.String("workspace", "", "workspace name (overrides config default)")
	apiFlag := flag.String("api", "", "API base URL (overrides config and environment)")
	flag.Parse()

	name := workspace.Resolve(*workspaceFlag)
	if err := workspace.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*apiFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var rt *app.Runtime
	fxApp := fx.New(
		fx.NopLogger,
		app.Module(app.Params{Workspace: name, Config: cfg}),
		fx.Populate(&rt),
	)
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	runErr := tui.NewApp(rt).Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func loadConfig(apiOverride string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(workspace.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, workspace.EnvPath()); err != nil {
		return nil, err
	}
	if apiOverride != "" {
		cfg.APIBaseURL = apiOverride
	}
	return cfg, nil
}
