package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"usatt/internal/components/chrono"
	"usatt/internal/components/telemetry"
	"usatt/internal/export"
	"usatt/internal/scrapers/usatt"
	"usatt/internal/store"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

var (
	configPath string
	verbose    bool
	database   string
	dumpDir    string
	format     string
)

var rootCmd = &cobra.Command{
	Use:          "usatt",
	Short:        "usatt reads player ratings off of the USATT ratings site.",
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", fmt.Sprintf("The config file to use, defaults to the nearest %s.", configName))
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	flags.StringVar(&database, "db", "", "A sqlite path or libsql url to also save results to.")
	flags.StringVar(&dumpDir, "dump-http", "", "Write every http request and response into this directory.")
	flags.StringVar(&format, "format", string(export.FormatMarkdown), fmt.Sprintf("The output format, one of %v.", export.Formats))
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// clock is swapped out in tests.
var clock chrono.API = chrono.StandardImpl{}

// env holds everything a command needs to run.
type env struct {
	config Config
	time   chrono.API
	tel    telemetry.API
	client *usatt.Client
	store  *store.Store
	otel   telemetry.Telemetry
}

func newEnv(ctx context.Context, logOutput io.Writer) (*env, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if database != "" {
		config.Database = database
	}

	otelProviders, err := telemetry.Setup(ctx, "usatt", config.Otlp)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	tel := telemetry.NewMeteredAPI(
		telemetry.NewSlogAPI(telemetry.NewLogger(logOutput, verbose)),
		otel.Meter("usatt"),
	)
	tel.ReportDebug("loaded config", config.BaseUrl, config.RequestsPerSecond)

	opts := config.clientOptions()
	if dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(dumpDir)
		if err != nil {
			otelProviders.Shutdown(context.Background())
			return nil, fmt.Errorf("dump http: %w", err)
		}
		opts.Dump = output
	}
	client, err := usatt.NewClient(opts, tel)
	if err != nil {
		otelProviders.Shutdown(context.Background())
		return nil, err
	}

	e := &env{
		config: config,
		time:   clock,
		tel:    tel,
		client: client,
		otel:   otelProviders,
	}
	if config.Database != "" {
		s, err := store.Open(ctx, config.Database)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.store = &s
	}
	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		err := e.store.Close()
		if err != nil {
			e.tel.ReportWarning("env.close", fmt.Errorf("close db: %w", err))
		}
	}
	err := e.otel.Shutdown(context.Background())
	if err != nil {
		e.tel.ReportWarning("env.close", fmt.Errorf("shutdown telemetry: %w", err))
	}
}

func outputFormat(cmd *cobra.Command, fallback export.Format) (export.Format, error) {
	if !cmd.Flags().Changed("format") {
		return fallback, nil
	}
	return export.ParseFormat(format)
}
