package main

import (
	"testing"

	"github.com/avenir-dev/iawic/internal/config"
	"github.com/sirupsen/logrus"
)

func TestApplyFlagOverridesOnlyAppliesSetFlags(t *testing.T) {
	cfg := config.Default()
	applyFlagOverrides(cfg, flagOverrides{})

	if cfg.Crawl.CrawlDepth != 3 || cfg.Crawl.MaxPages != 1000 {
		t.Errorf("applyFlagOverrides failed: zero-value flags should leave defaults untouched, got depth=%d maxPages=%d",
			cfg.Crawl.CrawlDepth, cfg.Crawl.MaxPages)
	}

	applyFlagOverrides(cfg, flagOverrides{
		depth:         5,
		maxPages:      50,
		outputDir:     "/tmp/out",
		workers:       8,
		logLevel:      "DEBUG",
		mongo:         true,
		elastic:       true,
		respectRobots: true,
		respectValue:  false,
	})

	if cfg.Crawl.CrawlDepth != 5 {
		t.Errorf("applyFlagOverrides failed: expected depth 5, got %d", cfg.Crawl.CrawlDepth)
	}
	if cfg.Crawl.MaxPages != 50 {
		t.Errorf("applyFlagOverrides failed: expected max pages 50, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.OutputDir != "/tmp/out" {
		t.Errorf("applyFlagOverrides failed: expected output dir override, got %q", cfg.Crawl.OutputDir)
	}
	if cfg.Workers != 8 {
		t.Errorf("applyFlagOverrides failed: expected workers 8, got %d", cfg.Workers)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("applyFlagOverrides failed: expected log level DEBUG, got %q", cfg.LogLevel)
	}
	if !cfg.Storage.MongoEnabled || !cfg.Storage.ElasticEnabled {
		t.Errorf("applyFlagOverrides failed: expected mongo and elastic both enabled")
	}
	if cfg.Crawl.RespectRobotsTxt {
		t.Errorf("applyFlagOverrides failed: expected --respect-robots=false to be applied when the flag was changed")
	}
}

func TestApplyFlagOverridesRespectsRobotsFalseRequiresChangedFlag(t *testing.T) {
	cfg := config.Default()
	cfg.Crawl.RespectRobotsTxt = true

	applyFlagOverrides(cfg, flagOverrides{respectRobots: false, respectValue: false})
	if !cfg.Crawl.RespectRobotsTxt {
		t.Errorf("applyFlagOverrides failed: unchanged --respect-robots flag should not override config")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"DEBUG":   logrus.DebugLevel,
		"WARNING": logrus.WarnLevel,
		"ERROR":   logrus.ErrorLevel,
		"INFO":    logrus.InfoLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) failed: got %v, want %v", in, got, want)
		}
	}
}
