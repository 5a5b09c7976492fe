package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures content
// sources, session sampling, ranking policy, and storage.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type SourcesConfig struct {
	// Known instance base URLs queried in order by the resolver.
	Instances []string `yaml:"instances"`
	// User-preferred instances, tried before the known list and used to
	// render alternate watch links.
	Preferred []string `yaml:"preferred"`
}

type TrackingConfig struct {
	// Player sampling interval in seconds.
	SampleInterval float64 `yaml:"sampleInterval"`
	// Slack in seconds added to the interval before a time jump splits the
	// open interval into a segment.
	JumpSlack float64 `yaml:"jumpSlack"`
	// Segments shorter than this are dropped as noise.
	MinSegmentSeconds float64 `yaml:"minSegmentSeconds"`
	// How often the live/VOD flag is re-checked, in samples.
	LiveRecheckSamples int `yaml:"liveRecheckSamples"`
}

type RankingConfig struct {
	// Multiplier applied to both similarity scores of already-seen videos.
	SeenDecay float64 `yaml:"seenDecay"`
	// Max results kept per channel identity.
	ChannelCap int `yaml:"channelCap"`
	// Max entries in the ranked output.
	MaxResults int `yaml:"maxResults"`
	// Sensitivity mode: "all", "hide", or "only".
	Sensitivity string `yaml:"sensitivity"`
}

type DiscoveryConfig struct {
	// Page size for the instance list endpoint.
	Count int `yaml:"count"`
	// Pages fetched per sort key for the newest-first crawl.
	MaxPages int `yaml:"maxPages"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Sensitivity modes accepted in RankingConfig.Sensitivity.
const (
	SensitivityAll  = "all"
	SensitivityHide = "hide"
	SensitivityOnly = "only"
)

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Sources: SourcesConfig{
			Instances: []string{"https://dalek.zone"},
			Preferred: nil,
		},
		Tracking: TrackingConfig{
			SampleInterval:     1,
			JumpSlack:          2,
			MinSegmentSeconds:  0.1,
			LiveRecheckSamples: 60,
		},
		Ranking: RankingConfig{
			SeenDecay:   0.5,
			ChannelCap:  2,
			MaxResults:  500,
			Sensitivity: SensitivityAll,
		},
		Discovery: DiscoveryConfig{Count: 10, MaxPages: 1},
		Storage:   StorageConfig{DBPath: "./peerscout.db"},
		Metrics:   MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("PEERSCOUT_DB")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
	if v := os.Getenv("PEERSCOUT_INSTANCES"); v != "" && len(c.Sources.Instances) == 0 {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Sources.Instances = append(c.Sources.Instances, p)
			}
		}
	}
}

// Validate checks values that would silently break the pipeline.
func (c Config) Validate() error {
	if c.Tracking.SampleInterval <= 0 {
		return errors.New("tracking.sampleInterval must be positive")
	}
	if c.Ranking.SeenDecay < 0 || c.Ranking.SeenDecay > 1 {
		return errors.New("ranking.seenDecay must be in [0,1]")
	}
	switch c.Ranking.Sensitivity {
	case SensitivityAll, SensitivityHide, SensitivityOnly:
	default:
		return errors.New("ranking.sensitivity must be all, hide, or only")
	}
	return nil
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
