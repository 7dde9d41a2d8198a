// Command ingest runs one entry point synchronously and prints its summary.
//
//	ingest [-compact] <probe|snapshot|backfill|backfill-full> <symbol...>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/bootstrap"
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

const usage = "usage: ingest [-compact] <probe|snapshot|backfill|backfill-full> <symbol...>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	compact := fs.Bool("compact", false, "print the summary on one line")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	kind, symbols, err := parseArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, usage)
		return 2
	}

	runner, cleanup, err := bootstrap.InitRunner(ctx)
	if err != nil {
		logx.L().Error("init runner", zap.Error(err))
		return 1
	}
	defer cleanup()

	return execute(ctx, runner, kind, symbols, stdout, !*compact)
}

type executor interface {
	Run(ctx context.Context, kind domain.RunKind, symbols []string) (domain.RunSummary, error)
}

var _ executor = (*application.Runner)(nil)

// execute prints the summary even when the run failed; only operational
// failures change the exit code.
func execute(ctx context.Context, ex executor, kind domain.RunKind, symbols []string, stdout io.Writer, indent bool) int {
	sum, err := ex.Run(ctx, kind, symbols)
	enc := json.NewEncoder(stdout)
	if indent {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(sum); encErr != nil {
		logx.L().Error("encode summary", zap.Error(encErr))
		return 1
	}
	if err != nil {
		logx.L().Error("run failed", zap.String("kind", string(kind)), zap.Error(err))
		return 1
	}
	return 0
}

func parseArgs(args []string) (domain.RunKind, []string, error) {
	if len(args) == 0 {
		return "", nil, errors.New("missing entry point")
	}
	kind, ok := domain.ParseRunKind(args[0])
	if !ok {
		return "", nil, fmt.Errorf("unknown entry point %q", args[0])
	}
	if len(args) == 1 {
		return "", nil, fmt.Errorf("%s needs at least one symbol", args[0])
	}
	return kind, args[1:], nil
}
