package coordinator

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/logging"
)

// ErrAborted marks segments never started because the whole first stage
// failed.
var ErrAborted = errors.New("run aborted after first stage failed")

// #region config

// Config bounds a coordination run.
type Config struct {
	MaxParallel      int           `yaml:"max_parallel"`      // concurrent segments per stage
	EscalationQueue  int           `yaml:"escalation_queue"`  // 0 disables escalation
	QueryTimeout     time.Duration `yaml:"query_timeout"`     // 0 derives stages x segment timeout
	SegmentTimeout   time.Duration `yaml:"-"`                 // copied from the runner config
	EscalationPrefix string        `yaml:"escalation_prefix"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxParallel:      8,
		EscalationQueue:  4,
		SegmentTimeout:   30 * time.Second,
		EscalationPrefix: "A previous attempt at this task was weak. Answer more thoroughly and cite sources: ",
	}
}

// #endregion config

// #region key-finding

// KeyFinding is one fact appended to the global context.
type KeyFinding struct {
	SegmentID  string  `json:"segment_id"`
	Fact       string  `json:"fact"`
	Confidence float64 `json:"confidence"`
}

// GlobalContext accumulates findings across the run. Entities are
// last-write-wins; key findings are append-only.
type GlobalContext struct {
	Entities    map[string]string `json:"entities"`
	KeyFindings []KeyFinding      `json:"key_findings"`
}

// #endregion key-finding

// #region sink

// EventSink receives every logged event. Errors are logged and ignored.
type EventSink interface {
	Record(ev logging.Event) error
}

// #endregion sink
