package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for an audit run. Values come from
// config.yaml when present, overridden by CLI flags.
type Config struct {
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// Network bounds
	TimeoutSeconds  int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	DelaySeconds    float64 `yaml:"delay_seconds" json:"delay_seconds"` // per-domain inter-request delay
	Concurrency     int     `yaml:"concurrency" json:"concurrency"`     // global max in-flight requests
	PerDomainMax    int     `yaml:"per_domain_max" json:"per_domain_max"`
	TimeoutRetries  int     `yaml:"timeout_retries" json:"timeout_retries"`
	MaxContentBytes int64   `yaml:"max_content_bytes" json:"max_content_bytes"`

	// Limit processed bookmarks, 0 means no limit. Useful for trial runs.
	MaxURLs int `yaml:"max_urls" json:"max_urls"`

	// Recommendation thresholds on the [0,1] quality score. Below Low the
	// bookmark is archived, above High it is kept; in between it goes to
	// review unless an earlier rule fires.
	QualityLow  float64 `yaml:"quality_low" json:"quality_low"`
	QualityHigh float64 `yaml:"quality_high" json:"quality_high"`

	// Jaccard threshold on token shingles above which two extracted texts
	// are candidate duplicates.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// DefaultConfig returns the documented defaults. The recommendation
// thresholds and similarity cutoff here are the ones the scenario outputs
// in the test suite assume.
func DefaultConfig() Config {
	return Config{
		UserAgent:           "bookmark-audit/1.0",
		TimeoutSeconds:      10,
		DelaySeconds:        1.0,
		Concurrency:         8,
		PerDomainMax:        2,
		TimeoutRetries:      1,
		MaxContentBytes:     5 << 20,
		QualityLow:          0.30,
		QualityHigh:         0.70,
		SimilarityThreshold: 0.80,
	}
}

// LoadConfig reads a yaml config file over the defaults. A missing file is
// not an error; the defaults stand.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.PerDomainMax < 1 {
		return fmt.Errorf("per_domain_max must be at least 1, got %d", c.PerDomainMax)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", c.TimeoutSeconds)
	}
	if c.QualityLow < 0 || c.QualityHigh > 1 || c.QualityLow >= c.QualityHigh {
		return fmt.Errorf("quality thresholds must satisfy 0 <= low < high <= 1, got low=%v high=%v", c.QualityLow, c.QualityHigh)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0,1], got %v", c.SimilarityThreshold)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DomainDelay returns the per-domain inter-request delay.
func (c Config) DomainDelay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}
