package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run dispatches subcommands (serve, process, route, migrate, plan).
func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	switch cmd {
	case "serve":
		return runServe(cfg)
	case "process":
		return runProcess(cfg, args)
	case "route":
		return runRoute(cfg, args)
	case "migrate":
		return runMigrate(cfg, args)
	case "plan":
		return runPlan(cfg)
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: invoiceflow <command> [options]

Commands:
  serve                    Run the HTTP API, WebSocket feed and NATS intake (default)
  process [--json] <file>  Run one document (YAML or JSON) through the pipeline
  route [--json] <file>    Invoke the single stage mapped to the document's status
  migrate [up|down N|version]
                           Manage the PostgreSQL schema
  plan                     Print the effective execution plan
  help                     Show this help message

Configuration is read from invoiceflow.yaml (or $INVOICEFLOW_CONFIG) and
INVOICEFLOW_* environment variables.
`)
}
