// Command iawic runs an adaptive web crawl from a single starting URL,
// writing extracted pages as batched JSON files (plus optional document
// store / search index sinks) until the frontier is exhausted or the
// configured page budget is reached.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avenir-dev/iawic/internal/config"
	"github.com/avenir-dev/iawic/internal/engine"
	"github.com/avenir-dev/iawic/internal/render"
	"github.com/avenir-dev/iawic/internal/sink"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		configPath     string
		depth          int
		maxPages       int
		outputDir      string
		workers        int
		logLevel       string
		mongoEnabled   bool
		elasticEnabled bool
		respectRobots  bool
	)

	cmd := &cobra.Command{
		Use:   "iawic URL",
		Short: "Adaptive web crawler.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a JSON config file.")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum crawl depth (0 keeps the config/default value).")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to crawl (0 keeps the config/default value).")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to write batch output files to.")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent crawl workers (0 keeps the config/default value).")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: DEBUG, INFO, WARNING, or ERROR.")
	cmd.Flags().BoolVar(&mongoEnabled, "mongo", false, "Enable the MongoDB sink.")
	cmd.Flags().BoolVar(&elasticEnabled, "elastic", false, "Enable the Elasticsearch sink.")
	cmd.Flags().BoolVar(&respectRobots, "respect-robots", true, "Honor robots.txt rules and crawl-delay.")

	exitCode := 0
	interrupted := int32(0)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cfg, flagOverrides{
			depth:         depth,
			maxPages:      maxPages,
			outputDir:     outputDir,
			workers:       workers,
			logLevel:      logLevel,
			mongo:         mongoEnabled,
			elastic:       elasticEnabled,
			respectRobots: cmd.Flags().Changed("respect-robots"),
			respectValue:  respectRobots,
		})

		log := logrus.New()
		log.SetLevel(parseLogLevel(cfg.LogLevel))
		log.SetFormatter(&logrus.JSONFormatter{})

		sinks, closeSinks, err := buildSinks(cfg, log)
		if err != nil {
			return err
		}
		defer closeSinks()

		opts := []engine.Option{engine.WithLogger(log)}
		if cfg.Crawl.RenderMode != config.RenderStatic {
			renderer, err := render.NewRodRenderer(render.Options{Headless: true, Logger: log})
			if err != nil {
				log.WithField("error", err).Warn("renderer_unavailable_falling_back_to_static")
			} else {
				opts = append(opts, engine.WithRenderer(renderer))
			}
		}

		e := engine.New(cfg, sinks, opts...)

		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signalCh
			atomic.StoreInt32(&interrupted, 1)
		}()

		if err := e.Start(args[0]); err != nil {
			return err
		}

		stats := e.Stats()
		log.WithFields(logrus.Fields{
			"crawled":    stats.URLsCrawled,
			"failed":     stats.URLsFailed,
			"dropped":    stats.URLsDropped,
			"duplicates": stats.DuplicatesFound,
		}).Info("iawic_finished")
		return nil
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "iawic:", err)
		exitCode = 1
	}
	if atomic.LoadInt32(&interrupted) == 1 {
		return 130
	}
	return exitCode
}

type flagOverrides struct {
	depth         int
	maxPages      int
	outputDir     string
	workers       int
	logLevel      string
	mongo         bool
	elastic       bool
	respectRobots bool
	respectValue  bool
}

// applyFlagOverrides layers explicitly-set CLI flags on top of the
// (possibly --config-loaded) configuration, mirroring the --config
// file's own permissive merge: a flag left at its zero value never
// overrides a config value.
func applyFlagOverrides(cfg *config.IAWICConfig, f flagOverrides) {
	if f.depth > 0 {
		cfg.Crawl.CrawlDepth = f.depth
	}
	if f.maxPages > 0 {
		cfg.Crawl.MaxPages = f.maxPages
	}
	if f.outputDir != "" {
		cfg.Crawl.OutputDir = f.outputDir
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.mongo {
		cfg.Storage.MongoEnabled = true
	}
	if f.elastic {
		cfg.Storage.ElasticEnabled = true
	}
	if f.respectRobots {
		cfg.Crawl.RespectRobotsTxt = f.respectValue
	}
}

func parseLogLevel(level string) logrus.Level {
	switch level {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// buildSinks constructs the mandatory JSON batch sink plus a no-op
// stand-in for every enabled out-of-pack storage backend (Mongo,
// Elasticsearch), and returns a single close func covering all of them.
func buildSinks(cfg *config.IAWICConfig, log *logrus.Logger) ([]sink.Sink, func(), error) {
	jsonSink, err := sink.NewJSONBatchSink(sink.Options{
		OutputDir: cfg.Crawl.OutputDir,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("iawic: creating output sink: %w", err)
	}

	sinks := []sink.Sink{jsonSink}
	if cfg.Storage.MongoEnabled {
		sinks = append(sinks, sink.NewNullSink("mongo", log))
	}
	if cfg.Storage.ElasticEnabled {
		sinks = append(sinks, sink.NewNullSink("elastic", log))
	}

	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	return sinks, closeAll, nil
}
