package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// Judge provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Classifier artifact formats.
const (
	FormatTreeEnsemble = "tree_ensemble"
	FormatONNX         = "onnx"
)

// ScoringConfig is the YAML document that shapes the ensemble.
type ScoringConfig struct {
	Judges     []JudgeConfig            `yaml:"judges"`
	ML         MLConfig                 `yaml:"ml"`
	Aggregator service.AggregatorConfig `yaml:"aggregator"`
	Benchmarks service.BenchmarkTable   `yaml:"benchmarks"`
}

// JudgeConfig describes one LLM judge.
type JudgeConfig struct {
	Name      string        `yaml:"name"`
	Type      string        `yaml:"type"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Weight    float64       `yaml:"weight"`
	Timeout   time.Duration `yaml:"timeout"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// APIKey resolves the judge's credential from the environment. Empty means unconfigured.
func (j JudgeConfig) APIKey() string {
	if j.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(j.APIKeyEnv)
}

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	Interval         time.Duration `yaml:"interval"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	HalfOpenRequests uint32        `yaml:"half_open_requests"`
}

// MLConfig locates the pre-trained artifacts and their weights.
type MLConfig struct {
	AnomalyModelPath string              `yaml:"anomaly_model_path"`
	AnomalyWeight    float64             `yaml:"anomaly_weight"`
	Calibration      service.Calibration `yaml:"calibration"`
	ClassifierWeight float64             `yaml:"classifier_weight"`
	Classifiers      []ClassifierConfig  `yaml:"classifiers"`
	ONNXRuntimeLib   string              `yaml:"onnxruntime_lib"`
}

// ClassifierConfig is one supervised model in the classification scorer.
type ClassifierConfig struct {
	ID       string   `yaml:"id"`
	Path     string   `yaml:"path"`
	Format   string   `yaml:"format"`
	Weight   float64  `yaml:"weight"`
	Features []string `yaml:"features"`
}

// DefaultScoringConfig returns the ensemble used when no file is present.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Judges: []JudgeConfig{
			{Name: "openai", Type: ProviderOpenAI, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY", Weight: 0.9},
			{Name: "anthropic", Type: ProviderAnthropic, BaseURL: "https://api.anthropic.com/v1", Model: "claude-sonnet-4-20250514", APIKeyEnv: "ANTHROPIC_API_KEY", Weight: 0.85},
			{Name: "gemini", Type: ProviderGemini, BaseURL: "https://generativelanguage.googleapis.com/v1beta", Model: "gemini-1.5-pro", APIKeyEnv: "GEMINI_API_KEY", Weight: 0.8},
		},
		ML: MLConfig{
			AnomalyWeight:    0.3,
			Calibration:      service.DefaultCalibration(),
			ClassifierWeight: 0.7,
		},
		Aggregator: service.DefaultAggregatorConfig(),
		Benchmarks: service.DefaultBenchmarks(),
	}
}

// EffectiveBenchmarks returns the built-in table with the configured overrides applied.
func (c *ScoringConfig) EffectiveBenchmarks() service.BenchmarkTable {
	return service.DefaultBenchmarks().Merge(c.Benchmarks)
}

// LoadScoring reads the scoring YAML. A missing file yields the defaults.
func LoadScoring(path string) (*ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := DefaultScoringConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read scoring config: %w", err)
	}
	return ParseScoring(data)
}

// ParseScoring decodes a scoring document, fills defaults, and validates it.
func ParseScoring(data []byte) (*ScoringConfig, error) {
	var cfg ScoringConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scoring config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *ScoringConfig) {
	def := DefaultScoringConfig()

	if len(cfg.Judges) == 0 {
		cfg.Judges = def.Judges
	}
	for i := range cfg.Judges {
		j := &cfg.Judges[i]
		if j.Type == "" {
			j.Type = j.Name
		}
		if j.Timeout <= 0 {
			j.Timeout = service.DefaultJudgeTimeout
		}
		for _, d := range def.Judges {
			if d.Type != j.Type {
				continue
			}
			if j.BaseURL == "" {
				j.BaseURL = d.BaseURL
			}
			if j.Model == "" {
				j.Model = d.Model
			}
			if j.APIKeyEnv == "" {
				j.APIKeyEnv = d.APIKeyEnv
			}
			if j.Weight == 0 {
				j.Weight = d.Weight
			}
		}
	}

	if cfg.ML.AnomalyWeight == 0 {
		cfg.ML.AnomalyWeight = def.ML.AnomalyWeight
	}
	if cfg.ML.ClassifierWeight == 0 {
		cfg.ML.ClassifierWeight = def.ML.ClassifierWeight
	}
	if cfg.ML.Calibration.Method == "" {
		cfg.ML.Calibration = def.ML.Calibration
	}
	for i := range cfg.ML.Classifiers {
		if cfg.ML.Classifiers[i].Format == "" {
			cfg.ML.Classifiers[i].Format = FormatTreeEnsemble
		}
	}

	agg := &cfg.Aggregator
	if agg.GroupWeights == (service.GroupWeights{}) {
		agg.GroupWeights = def.Aggregator.GroupWeights
	}
	if agg.Thresholds == (valueobject.TierThresholds{}) {
		agg.Thresholds = def.Aggregator.Thresholds
	}
	if agg.AgreementTolerance <= 0 {
		agg.AgreementTolerance = def.Aggregator.AgreementTolerance
	}

	cfg.Benchmarks = cfg.EffectiveBenchmarks()
}

// Validate rejects documents the engine cannot run with.
func (c *ScoringConfig) Validate() error {
	seen := make(map[string]bool, len(c.Judges))
	for _, j := range c.Judges {
		if j.Name == "" {
			return fmt.Errorf("judge name is required")
		}
		if seen[j.Name] {
			return fmt.Errorf("duplicate judge %q", j.Name)
		}
		seen[j.Name] = true
		switch j.Type {
		case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		default:
			return fmt.Errorf("judge %q: unknown provider type %q", j.Name, j.Type)
		}
		if j.Weight <= 0 || j.Weight > 1 {
			return fmt.Errorf("judge %q: weight must be in (0,1], got %v", j.Name, j.Weight)
		}
	}

	if c.ML.AnomalyWeight <= 0 || c.ML.AnomalyWeight > 1 {
		return fmt.Errorf("anomaly weight must be in (0,1], got %v", c.ML.AnomalyWeight)
	}
	if c.ML.ClassifierWeight <= 0 || c.ML.ClassifierWeight > 1 {
		return fmt.Errorf("classifier weight must be in (0,1], got %v", c.ML.ClassifierWeight)
	}
	switch c.ML.Calibration.Method {
	case service.CalibrationSigmoid, service.CalibrationMinMax:
	default:
		return fmt.Errorf("unknown calibration method %q", c.ML.Calibration.Method)
	}
	for _, cl := range c.ML.Classifiers {
		if cl.ID == "" || cl.Path == "" {
			return fmt.Errorf("classifier id and path are required")
		}
		if cl.Weight <= 0 {
			return fmt.Errorf("classifier %q: weight must be positive", cl.ID)
		}
		switch cl.Format {
		case FormatTreeEnsemble, FormatONNX:
		default:
			return fmt.Errorf("classifier %q: unknown format %q", cl.ID, cl.Format)
		}
	}

	if _, err := service.NewConsensusAggregator(c.Aggregator); err != nil {
		return fmt.Errorf("aggregator: %w", err)
	}
	return nil
}
