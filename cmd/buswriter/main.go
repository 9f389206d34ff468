package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/AndrewSilver/buswriter/internal/app"
	"github.com/AndrewSilver/buswriter/internal/buffer"
	"github.com/AndrewSilver/buswriter/internal/cliconfig"
	"github.com/AndrewSilver/buswriter/internal/configwatch"
	"github.com/AndrewSilver/buswriter/pkg/log"
)

const longHelp = `Send messages to a bus through two buffering pipelines.

The first pipeline accumulates messages in a byte buffer and publishes the
whole buffer once it grows past --threshold bytes. The second groups messages
into batches of --batch-size and publishes each batch as one payload.

Messages are generated ("00 ", "01 ", ...) unless --input - is given, in which
case every stdin line is one message.`

var exampleUsage = strings.TrimSpace(`
  buswriter --messages 100 --parallelism 2
  printf 'a\nb\nc\n' | buswriter --input - --publisher file --output bus.log
  buswriter --publisher http --service-url https://bus.example.com --auth-key <key> --gzip
  buswriter --publisher beats --beats-addr localhost:5044 --retry-attempts 5
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger, err := log.NewConsoleLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "buswriter: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "buswriter",
		Short:         "Buffer and batch messages on their way to a bus",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// BUSWRITER_* variables override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			l, err := log.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			logger = l

			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			logger.Info("configuration", log.Any("config", logCfg))

			return run(cmd.Context(), cfg, cfgFile, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.buswriter/config.toml)")

	root.Flags().IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "buffer size in bytes above which the buffer is flushed")
	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "number of messages per batch")
	root.Flags().StringVar(&cfg.FlushMode, "flush-mode", cfg.FlushMode, "buffer flush mode: inline or detached")

	root.Flags().StringVar(&cfg.Publisher, "publisher", cfg.Publisher, "downstream publisher: stdout, file, http or beats")
	root.Flags().StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "output file for the file publisher")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "base URL for the http publisher")
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "bearer token for the http publisher")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "downstream request timeout")
	root.Flags().BoolVar(&cfg.Gzip, "gzip", cfg.Gzip, "gzip http request bodies")
	root.Flags().StringVar(&cfg.BeatsAddr, "beats-addr", cfg.BeatsAddr, "host:port of the beats listener")
	root.Flags().IntVar(&cfg.BeatsCompression, "beats-compression", cfg.BeatsCompression, "lumberjack compression level (0 disables)")

	root.Flags().IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "publish attempts per payload")
	root.Flags().DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "first retry delay")
	root.Flags().DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "maximum retry delay")

	root.Flags().IntVar(&cfg.Messages, "messages", cfg.Messages, "number of generated messages")
	root.Flags().IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "concurrent buffer writers")
	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "read messages from stdin lines when set to -")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload threshold when the config file changes")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long to wait for queued batches on shutdown")

	if err := root.Execute(); err != nil {
		logger.Error("buswriter", log.Err(err))
		os.Exit(1)
	}
}

func run(parent context.Context, cfg cliconfig.Config, cfgFile string, logger log.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chain, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := chain.Close(); err != nil {
			logger.Warn("close publisher", log.Err(err))
		}
	}()

	mode, err := buffer.ParseFlushMode(cfg.FlushMode)
	if err != nil {
		return err
	}
	w := app.NewWriter(chain, app.WriterConfig{
		Threshold:       cfg.Threshold,
		BatchSize:       cfg.BatchSize,
		FlushMode:       mode,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if cfg.WatchConfig && cfgFile != "" {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		watcher := configwatch.New(cfgFile, configwatch.DefaultDebounce, func(fc cliconfig.FileConfig) {
			if fc.Threshold > 0 {
				w.SetThreshold(fc.Threshold)
			}
			if fc.BatchSize > 0 && fc.BatchSize != w.BatchSize() {
				logger.Warn("batch_size change ignored until restart",
					log.Int("current", w.BatchSize()),
					log.Int("requested", fc.BatchSize),
				)
			}
		}, logger)
		go func() {
			if err := watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", log.Err(err))
			}
		}()
	}

	var src app.MessageSource = app.GeneratedSource{Count: cfg.Messages}
	if cfg.Input == "-" {
		src = app.LineSource{Reader: os.Stdin}
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start writer: %w", err)
	}

	start := time.Now()
	workErr := app.RunWorkload(ctx, w, src, cfg.Parallelism, logger)
	if workErr != nil {
		logger.Error("workload failed", log.Err(workErr))
	}

	// Stop gets a fresh context so a signal does not abort the final flush.
	stopErr := w.Stop(context.Background())

	snap := chain.Snapshot()
	logger.Info("publisher stats",
		log.Uint64("calls", snap.Calls),
		log.Uint64("failures", snap.Failures),
		log.Uint64("bytes", snap.Bytes),
		log.Int("max_concurrent", int(snap.MaxConcurrent)),
		log.Duration("elapsed", time.Since(start)),
	)

	return errors.Join(workErr, stopErr)
}
