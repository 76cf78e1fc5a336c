package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/injector"
	"github.com/zeusync/planetwalk/pkg/concurrent"
	"github.com/zeusync/planetwalk/pkg/encoding"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; defaults are used when empty")
	ticks := flag.Int("ticks", 0, "run this many fixed ticks headless, print the final snapshot and exit")
	flag.Parse()

	app, err := injector.InitializeApp(injector.ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing:", err)
		os.Exit(1)
	}
	defer func() { _ = app.Server.Close() }()

	if *ticks > 0 {
		snap, err := app.Simulation.Steps(*ticks)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error running simulation:", err)
			os.Exit(1)
		}
		out, err := encoding.MarshalJSON(snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error encoding snapshot:", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stopCh
		app.Logger.Info("Shutting down", log.String("signal", sig.String()))
		cancel()
	}()

	tasks := []concurrent.Task{app.Simulation.Run}
	if app.Config.Server.Enabled {
		tasks = append(tasks, app.Server.Run)
	}
	if err = concurrent.Run(ctx, tasks...); err != nil {
		app.Logger.Error("Host stopped with error", log.Error(err))
		os.Exit(1)
	}
}
