// Package config holds the crawl, storage and proxy configuration consumed
// by the crawl engine and its collaborators.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/avenir-dev/iawic/internal/env"
)

// CrawlStrategy selects the conceptual traversal order of the crawl.
//
// The engine never branches on this value: priority-based frontier
// ordering is the only traversal control that actually exists. Kept as a
// config field for compatibility with callers that set it explicitly.
type CrawlStrategy string

const (
	StrategyBFS    CrawlStrategy = "bfs"
	StrategyDFS    CrawlStrategy = "dfs"
	StrategyHybrid CrawlStrategy = "hybrid"
)

// RenderMode controls when the headless renderer is invoked.
type RenderMode string

const (
	RenderStatic     RenderMode = "static"
	RenderJavaScript RenderMode = "javascript"
	RenderAuto       RenderMode = "auto"
)

// CrawlConfig holds all per-crawl tunables.
type CrawlConfig struct {
	URL                 string
	CrawlDepth          int
	MaxPages            int
	FollowExternalLinks bool
	IncludeSubdomains   bool

	Strategy   CrawlStrategy
	RenderMode RenderMode

	RequestsPerSecond float64
	MinDelay          time.Duration
	MaxDelay          time.Duration
	AdaptiveDelay     bool

	PageTimeout    time.Duration
	NetworkTimeout time.Duration
	RenderTimeout  time.Duration

	ExtractImages         bool
	ExtractVideos         bool
	ExtractFiles          bool
	ExtractEntities       bool
	ExtractStructuredData bool
	ExtractTextContent    bool
	StoreHTML             bool

	EnableDedup          bool
	SimilarityThreshold  float64

	RotateUserAgents bool
	UseProxies       bool
	RespectRobotsTxt bool

	OutputDir    string
	OutputFormat string

	EnableClassification     bool
	EnableSummarization      bool
	EnableContentCleaning    bool
	EnableLanguageDetection  bool
}

// StorageConfig configures the optional document-store / search-index sinks.
type StorageConfig struct {
	MongoEnabled bool
	MongoURI     string
	MongoDB      string

	ElasticEnabled bool
	ElasticURI     string
	ElasticIndex   string

	RedisEnabled bool
	RedisURI     string
}

// ProxyConfig configures the (unused by default) proxy pool.
type ProxyConfig struct {
	Proxies             []string
	RotationStrategy    string
	HealthCheckInterval time.Duration
	MaxFailures         int
}

// IAWICConfig is the top-level configuration container.
type IAWICConfig struct {
	Crawl   CrawlConfig
	Storage StorageConfig
	Proxy   ProxyConfig

	LogLevel string
	Workers  int
}

// Default returns the default configuration, matching the enumerated
// defaults in spec §6.
func Default() *IAWICConfig {
	return &IAWICConfig{
		Crawl: CrawlConfig{
			CrawlDepth:              3,
			MaxPages:                1000,
			FollowExternalLinks:     false,
			IncludeSubdomains:       true,
			Strategy:                StrategyHybrid,
			RenderMode:              RenderAuto,
			RequestsPerSecond:       2.0,
			MinDelay:                500 * time.Millisecond,
			MaxDelay:                3 * time.Second,
			AdaptiveDelay:           true,
			PageTimeout:             30 * time.Second,
			NetworkTimeout:          60 * time.Second,
			RenderTimeout:           15 * time.Second,
			ExtractImages:           true,
			ExtractVideos:           true,
			ExtractFiles:            true,
			ExtractEntities:         true,
			ExtractStructuredData:   true,
			ExtractTextContent:      true,
			StoreHTML:               false,
			EnableDedup:             true,
			SimilarityThreshold:     0.85,
			RotateUserAgents:        true,
			UseProxies:              false,
			RespectRobotsTxt:        true,
			OutputDir:               "./output",
			OutputFormat:            "json",
			EnableClassification:    true,
			EnableSummarization:     false,
			EnableContentCleaning:   true,
			EnableLanguageDetection: true,
		},
		Storage: StorageConfig{
			MongoURI:     env.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDB:      env.GetEnv("MONGO_DB", "iawic"),
			ElasticURI:   env.GetEnv("ELASTIC_URI", "http://localhost:9200"),
			ElasticIndex: env.GetEnv("ELASTIC_INDEX", "iawic_pages"),
			RedisURI:     env.GetEnv("REDIS_URI", "redis://localhost:6379"),
		},
		Proxy: ProxyConfig{
			RotationStrategy:    "round_robin",
			HealthCheckInterval: 300 * time.Second,
			MaxFailures:         3,
		},
		LogLevel: env.GetEnv("LOG_LEVEL", "INFO"),
		Workers:  env.GetEnvAsInt("WORKERS", 4),
	}
}

// crawlOverride mirrors CrawlConfig.from_dict's key set; durations travel as
// plain seconds (float), matching the source config's field types.
type crawlOverride struct {
	URL                     *string  `json:"url"`
	CrawlDepth              *int     `json:"crawl_depth"`
	MaxPages                *int     `json:"max_pages"`
	FollowExternalLinks     *bool    `json:"follow_external_links"`
	IncludeSubdomains       *bool    `json:"include_subdomains"`
	Strategy                *string  `json:"strategy"`
	RenderMode              *string  `json:"render_mode"`
	RequestsPerSecond       *float64 `json:"requests_per_second"`
	MinDelay                *float64 `json:"min_delay"`
	MaxDelay                *float64 `json:"max_delay"`
	AdaptiveDelay           *bool    `json:"adaptive_delay"`
	PageTimeout             *float64 `json:"page_timeout"`
	NetworkTimeout          *float64 `json:"network_timeout"`
	RenderTimeout           *float64 `json:"render_timeout"`
	ExtractImages           *bool    `json:"extract_images"`
	ExtractVideos           *bool    `json:"extract_videos"`
	ExtractFiles            *bool    `json:"extract_files"`
	ExtractEntities         *bool    `json:"extract_entities"`
	ExtractStructuredData   *bool    `json:"extract_structured_data"`
	ExtractTextContent      *bool    `json:"extract_text_content"`
	StoreHTML               *bool    `json:"store_html"`
	EnableDedup             *bool    `json:"enable_dedup"`
	SimilarityThreshold     *float64 `json:"similarity_threshold"`
	RotateUserAgents        *bool    `json:"rotate_user_agents"`
	UseProxies              *bool    `json:"use_proxies"`
	RespectRobotsTxt        *bool    `json:"respect_robots_txt"`
	OutputDir               *string  `json:"output_dir"`
	OutputFormat            *string  `json:"output_format"`
	EnableClassification    *bool    `json:"enable_classification"`
	EnableSummarization     *bool    `json:"enable_summarization"`
	EnableContentCleaning   *bool    `json:"enable_content_cleaning"`
	EnableLanguageDetection *bool    `json:"enable_language_detection"`
}

type storageOverride struct {
	MongoEnabled   *bool   `json:"mongo_enabled"`
	MongoURI       *string `json:"mongo_uri"`
	MongoDB        *string `json:"mongo_db"`
	ElasticEnabled *bool   `json:"elastic_enabled"`
	ElasticURI     *string `json:"elastic_uri"`
	ElasticIndex   *string `json:"elastic_index"`
	RedisEnabled   *bool   `json:"redis_enabled"`
	RedisURI       *string `json:"redis_uri"`
}

type proxyOverride struct {
	Proxies             []string `json:"proxies"`
	RotationStrategy    *string  `json:"rotation_strategy"`
	HealthCheckInterval *float64 `json:"health_check_interval"`
	MaxFailures         *int     `json:"max_failures"`
}

// rawOverride mirrors the JSON shape accepted by --config.
type rawOverride struct {
	Crawl    crawlOverride   `json:"crawl"`
	Storage  storageOverride `json:"storage"`
	Proxy    proxyOverride   `json:"proxy"`
	LogLevel *string         `json:"log_level"`
	Workers  *int            `json:"workers"`
}

// LoadFile merges a JSON config file (the --config flag) on top of the
// defaults. Only keys present in the file override a default, mirroring
// IAWICConfig.from_dict's permissive merge.
func LoadFile(path string) (*IAWICConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw rawOverride
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyCrawlOverride(&cfg.Crawl, raw.Crawl)
	applyStorageOverride(&cfg.Storage, raw.Storage)
	applyProxyOverride(&cfg.Proxy, raw.Proxy)

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Workers != nil {
		cfg.Workers = *raw.Workers
	}

	return cfg, nil
}

func applyCrawlOverride(dst *CrawlConfig, o crawlOverride) {
	setStr(&dst.URL, o.URL)
	setInt(&dst.CrawlDepth, o.CrawlDepth)
	setInt(&dst.MaxPages, o.MaxPages)
	setBool(&dst.FollowExternalLinks, o.FollowExternalLinks)
	setBool(&dst.IncludeSubdomains, o.IncludeSubdomains)
	if o.Strategy != nil {
		dst.Strategy = CrawlStrategy(*o.Strategy)
	}
	if o.RenderMode != nil {
		dst.RenderMode = RenderMode(*o.RenderMode)
	}
	setFloat(&dst.RequestsPerSecond, o.RequestsPerSecond)
	setDuration(&dst.MinDelay, o.MinDelay)
	setDuration(&dst.MaxDelay, o.MaxDelay)
	setBool(&dst.AdaptiveDelay, o.AdaptiveDelay)
	setDuration(&dst.PageTimeout, o.PageTimeout)
	setDuration(&dst.NetworkTimeout, o.NetworkTimeout)
	setDuration(&dst.RenderTimeout, o.RenderTimeout)
	setBool(&dst.ExtractImages, o.ExtractImages)
	setBool(&dst.ExtractVideos, o.ExtractVideos)
	setBool(&dst.ExtractFiles, o.ExtractFiles)
	setBool(&dst.ExtractEntities, o.ExtractEntities)
	setBool(&dst.ExtractStructuredData, o.ExtractStructuredData)
	setBool(&dst.ExtractTextContent, o.ExtractTextContent)
	setBool(&dst.StoreHTML, o.StoreHTML)
	setBool(&dst.EnableDedup, o.EnableDedup)
	setFloat(&dst.SimilarityThreshold, o.SimilarityThreshold)
	setBool(&dst.RotateUserAgents, o.RotateUserAgents)
	setBool(&dst.UseProxies, o.UseProxies)
	setBool(&dst.RespectRobotsTxt, o.RespectRobotsTxt)
	setStr(&dst.OutputDir, o.OutputDir)
	setStr(&dst.OutputFormat, o.OutputFormat)
	setBool(&dst.EnableClassification, o.EnableClassification)
	setBool(&dst.EnableSummarization, o.EnableSummarization)
	setBool(&dst.EnableContentCleaning, o.EnableContentCleaning)
	setBool(&dst.EnableLanguageDetection, o.EnableLanguageDetection)
}

func applyStorageOverride(dst *StorageConfig, o storageOverride) {
	setBool(&dst.MongoEnabled, o.MongoEnabled)
	setStr(&dst.MongoURI, o.MongoURI)
	setStr(&dst.MongoDB, o.MongoDB)
	setBool(&dst.ElasticEnabled, o.ElasticEnabled)
	setStr(&dst.ElasticURI, o.ElasticURI)
	setStr(&dst.ElasticIndex, o.ElasticIndex)
	setBool(&dst.RedisEnabled, o.RedisEnabled)
	setStr(&dst.RedisURI, o.RedisURI)
}

func applyProxyOverride(dst *ProxyConfig, o proxyOverride) {
	if o.Proxies != nil {
		dst.Proxies = o.Proxies
	}
	setStr(&dst.RotationStrategy, o.RotationStrategy)
	setDuration(&dst.HealthCheckInterval, o.HealthCheckInterval)
	setInt(&dst.MaxFailures, o.MaxFailures)
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, seconds *float64) {
	if seconds != nil {
		*dst = time.Duration(*seconds * float64(time.Second))
	}
}
