package segmenter

// #region imports
import "github.com/danielpatrickdp/query-coordinator/internal/segment"

// #endregion

// #region query-class

// QueryClass is the surface classification of a raw query.
type QueryClass string

const (
	ClassComparison QueryClass = "comparison"
	ClassSequential QueryClass = "sequential"
	ClassSimple     QueryClass = "simple"
	ClassModerate   QueryClass = "moderate"
	ClassComplex    QueryClass = "complex"
)

// #endregion

// #region classification

// Classification is the full classification output for a query.
type Classification struct {
	Class     QueryClass
	WordCount int
	Entities  []string
	Parts     []string // sequential parts, in order; nil for other classes
	Aspect    string   // trailing shared aspect of a comparison ("performance")
}

// #endregion

// #region config

// Config holds segmentation limits.
type Config struct {
	MaxEntities         int     `yaml:"max_entities"`
	SimpleMaxWords      int     `yaml:"simple_max_words"`
	ComplexMinWords     int     `yaml:"complex_min_words"`
	ComplexMinEntities  int     `yaml:"complex_min_entities"`
	EscalationThreshold float64 `yaml:"-"` // shared with the runner, set by config
}

// DefaultConfig returns the segmentation defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntities:         5,
		SimpleMaxWords:      8,
		ComplexMinWords:     20,
		ComplexMinEntities:  3,
		EscalationThreshold: 0.5,
	}
}

// #endregion

// #region interfaces

// TierAdvisor supplies learned mean confidence per (type, tier). Implemented
// by history.OutcomeMemory. ok=false means not enough samples.
type TierAdvisor interface {
	ExpectedConfidence(t segment.Type, tier segment.Tier) (conf float64, ok bool)
}

// #endregion
