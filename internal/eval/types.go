package eval

// #region eval-config
// EvalConfig holds the quality scoring knobs.
type EvalConfig struct {
	CoherentScore  float64 `yaml:"coherent_score"`  // coherence when any completed segment produced something
	MinOverall     float64 `yaml:"min_overall"`     // below this a run is reported as degraded
	MinCompleteness float64 `yaml:"min_completeness"`
}

// DefaultEvalConfig returns the production defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		CoherentScore:   0.8,
		MinOverall:      0.5,
		MinCompleteness: 0.5,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single quality check.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region quality
// Quality is the assessment of one coordinated run.
type Quality struct {
	Completeness float64      `json:"completeness"`
	Accuracy     float64      `json:"accuracy"`
	Coherence    float64      `json:"coherence"`
	Overall      float64      `json:"overall"`
	Passed       bool         `json:"passed"`
	Metrics      []EvalMetric `json:"metrics"`
	Reason       string       `json:"reason"`
}

// #endregion quality
