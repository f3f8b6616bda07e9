// Command sift runs LLM-driven entity research over web pages and documents.
//
// Usage:
//
//	sift research --prompt "find the portfolio companies" \
//	    --url https://example.com/portfolio --types types.json
//	sift research --config sift.yaml --prompt "..." --types types.json
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/sift-dev/sift/pkg/config"
	"github.com/sift-dev/sift/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Research ResearchCmd `cmd:"" help:"Run one research task and print the result as JSON."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("sift version %s\n", version)
	return nil
}

// setupLogging installs the process logger. Returns a cleanup function.
func setupLogging(cli *CLI) (func(), error) {
	output := os.Stderr
	cleanup := func() {}

	if cli.LogFile != "" {
		file, closeFile, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(logger.ParseLevel(cli.LogLevel), output, cli.LogFormat)
	return cleanup, nil
}

func loadConfig(cli *CLI) (*config.Config, error) {
	return config.Load(cli.Config)
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sift"),
		kong.Description("Structured entity research over web pages and documents."),
		kong.UsageOnError(),
	)

	cleanup, err := setupLogging(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := ctx.Run(cli); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
