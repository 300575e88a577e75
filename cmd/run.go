package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hetero/internal/device"
	"github.com/zjrosen/hetero/internal/executor"
	"github.com/zjrosen/hetero/internal/flowfile"
	"github.com/zjrosen/hetero/internal/pubsub"
	"github.com/zjrosen/hetero/internal/tracing"
	"github.com/zjrosen/hetero/internal/watcher"
)

var (
	runWatch   bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run <definition.yaml>",
	Short: "Execute a graph definition",
	Long: `Load a YAML graph definition, build it, and execute it across the
configured workers and simulated devices. With --watch the definition is
re-run every time the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false,
		"re-run the definition when the file changes")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false,
		"print node lifecycle events")
	rootCmd.AddCommand(runCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := args[0]

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	broker := pubsub.NewBroker[executor.Event]()
	defer broker.Close()
	if runVerbose {
		go printEvents(ctx, broker)
	}

	exec := executor.New(executor.Config{
		Workers: cfg.Workers,
		Pool:    device.NewPool(cfg.Devices, cfg.StreamsPerDevice),
		Policy:  pickPolicy(cfg.Policy),
		Broker:  broker,
		Tracer:  provider.Tracer(),
	})

	if err := runOnce(ctx, exec, path); err != nil {
		return err
	}
	if !runWatch {
		return nil
	}

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	changes, err := w.Start()
	if err != nil {
		return err
	}

	fmt.Printf("watching %s for changes\n", path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := runOnce(ctx, exec, path); err != nil {
				// Keep watching; a broken edit should not kill the loop.
				fmt.Fprintln(os.Stderr, "run failed:", err)
			}
		}
	}
}

func runOnce(ctx context.Context, exec *executor.Executor, path string) error {
	def, err := flowfile.Load(path)
	if err != nil {
		return err
	}
	res, err := def.Build()
	if err != nil {
		return err
	}

	if err := exec.Run(ctx, res.Flow.Graph()); err != nil {
		return err
	}

	fmt.Printf("%s: %d tasks completed\n", def.Name, res.Flow.Graph().Len())
	for key, out := range res.Outputs {
		fmt.Printf("  %s: %d bytes (checksum %d)\n", key, len(out), checksum(out))
	}
	return nil
}

func pickPolicy(name string) executor.Policy {
	if name == "least-loaded" {
		return executor.LeastLoaded{}
	}
	return &executor.RoundRobin{}
}

func printEvents(ctx context.Context, broker *pubsub.Broker[executor.Event]) {
	for ev := range broker.Subscribe(ctx) {
		p := ev.Payload
		switch ev.Type {
		case pubsub.NodeDispatched:
			if p.Device >= 0 {
				fmt.Printf("  -> %s (%s, device %d)\n", p.Node, p.Kind, p.Device)
			} else {
				fmt.Printf("  -> %s (%s)\n", p.Node, p.Kind)
			}
		case pubsub.NodeFailed:
			fmt.Printf("  !! %s: %v\n", p.Node, p.Err)
		}
	}
}

func checksum(b []byte) int {
	sum := 0
	for _, v := range b {
		sum += int(v)
	}
	return sum
}
