package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/queryplango/internal/answer"
	"github.com/vk/queryplango/internal/config"
	"github.com/vk/queryplango/internal/executor"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the resolved run
// configuration, a boolean indicating if the program should exit cleanly,
// or an ExitError. Values are layered: built-in defaults first, then the
// config file, then any flag the user set explicitly.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("queryplango", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
QueryPlanGo - A dependency-aware executor for query plans.

Usage:
  queryplango [options] [PLAN_PATH]

Arguments:
  PLAN_PATH
    Path to a single .hcl or .json plan file, or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	planFlag := flagSet.String("plan", "", "Path to the plan file or directory.")
	pFlag := flagSet.String("p", "", "Path to the plan file or directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to a TOML config file. Defaults to queryplan.toml if present.")
	answererFlag := flagSet.String("answerer", config.DefaultAnswerer, "Answering capability. Options: 'echo' or 'static'.")
	workersFlag := flagSet.Int("workers", config.DefaultWorkers, "Number of concurrent workers per wave.")
	failPolicyFlag := flagSet.String("fail-policy", config.DefaultFailPolicy, "Behavior once a query fails. Options: 'failfast' or 'continue'.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the wave schedule without answering any queries.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", config.DefaultLogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", config.DefaultLogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := config.Default()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.FindProjectFile()
	}
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		slog.Debug("Config file applied.", "path", configPath)
	}

	// Only flags the user actually set override the file.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "answerer":
			cfg.Answerer = *answererFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "fail-policy":
			cfg.FailPolicy = *failPolicyFlag
		case "status-port":
			cfg.StatusPort = *statusPortFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})
	cfg.DryRun = *dryRunFlag

	path := ""
	if *planFlag != "" {
		path = *planFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	} else {
		path = cfg.PlanPath
	}
	slog.Debug("Plan path determined.", "path", path)

	if path == "" {
		slog.Debug("No plan path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	cfg.PlanPath = config.ExpandPath(path)

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if _, err := executor.ParsePolicy(cfg.FailPolicy); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if _, err := answer.New(cfg.Answerer); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parameter validation complete.")

	slog.Debug("CLI parser finished successfully.", "plan_path", cfg.PlanPath)
	return cfg, false, nil
}
