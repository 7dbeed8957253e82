package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/specialistvlad/infergraph/internal/app"
)

// Environment variables that provide flag defaults.
const (
	EnvLogLevel  = "INFERGRAPH_LOG_LEVEL"
	EnvLogFormat = "INFERGRAPH_LOG_FORMAT"
	EnvTarget    = "INFERGRAPH_TARGET"
	EnvKernels   = "INFERGRAPH_KERNELS"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("infergraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
infergraph - An inference graph compiler.

Loads a model description, fuses operator chains, and prints the
execution order with its calibration data.

Usage:
  infergraph [options] [MODEL_PATH]

Arguments:
  MODEL_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	modelFlag := flagSet.String("model", "", "Path to the model file or directory.")
	mFlag := flagSet.String("m", "", "Path to the model file or directory (shorthand).")
	kernelsFlag := flagSet.String("kernels", envOr(EnvKernels, ""), "Path to the kernel manifests. Env: "+EnvKernels+".")
	targetFlag := flagSet.String("target", envOr(EnvTarget, app.DefaultTarget), "Kernel target the graph must run on. Env: "+EnvTarget+".")
	noFusionFlag := flagSet.Bool("no-fusion", false, "Only normalize the graph, do not fuse operators.")
	maxIterFlag := flagSet.Int("max-iterations", 0, "Cap on fusion passes. 0 uses the built-in default.")
	printFormatFlag := flagSet.String("print-format", "text", "Report format. Options: 'text' or 'json'.")
	logFormatFlag := flagSet.String("log-format", envOr(EnvLogFormat, "text"), "Log output format. Options: 'text' or 'json'. Env: "+EnvLogFormat+".")
	logLevelFlag := flagSet.String("log-level", envOr(EnvLogLevel, "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Env: "+EnvLogLevel+".")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *modelFlag != "" {
		path = *modelFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Model path determined.", "path", path)

	if path == "" {
		slog.Debug("No model path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ModelPath:     path,
		KernelsPath:   *kernelsFlag,
		Target:        strings.TrimSpace(*targetFlag),
		NoFusion:      *noFusionFlag,
		MaxIterations: *maxIterFlag,
		PrintFormat:   *printFormatFlag,
		LogFormat:     *logFormatFlag,
		LogLevel:      *logLevelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
