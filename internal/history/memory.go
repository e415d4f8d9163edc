package history

// #region imports
import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #endregion

// #region schema

const segmentOutcomesSchema = `
CREATE TABLE IF NOT EXISTS segment_outcomes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    segment_id    TEXT NOT NULL,
    segment_type  TEXT NOT NULL,
    tier          TEXT NOT NULL,
    confidence    REAL NOT NULL,
    success       INTEGER NOT NULL DEFAULT 0,
    escalated     INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
`

const segmentOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_segment_outcomes_lookup
ON segment_outcomes(segment_type, tier);
`

const (
	minSamples    = 3
	halfLifeHours = 7.0 * 24.0
)

// #endregion

// #region memory-struct

// OutcomeMemory persists segment outcomes in SQLite and answers
// decay-weighted confidence queries per (type, tier).
type OutcomeMemory struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutcomeMemory initializes the segment_outcomes table.
func NewOutcomeMemory(db *sql.DB) (*OutcomeMemory, error) {
	if _, err := db.Exec(segmentOutcomesSchema); err != nil {
		return nil, fmt.Errorf("segment_outcomes schema: %w", err)
	}
	if _, err := db.Exec(segmentOutcomesIndex); err != nil {
		return nil, fmt.Errorf("segment_outcomes index: %w", err)
	}
	return &OutcomeMemory{db: db, now: time.Now}, nil
}

// #endregion

// #region record-outcome

// RecordOutcome persists a single segment outcome row.
func (m *OutcomeMemory) RecordOutcome(rec OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	_, err := m.db.Exec(`
		INSERT INTO segment_outcomes
		(run_id, segment_id, segment_type, tier, confidence, success, escalated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.SegmentID,
		string(rec.Type),
		string(rec.Tier),
		rec.Confidence,
		boolInt(rec.Success),
		boolInt(rec.Escalated),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// #endregion

// #region expected-confidence

// ExpectedConfidence returns the decay-weighted mean confidence seen for
// segments of type t run at tier. Failed runs count as zero. Reports false
// with fewer than three samples or on a query error, so callers fall back to
// static estimates.
func (m *OutcomeMemory) ExpectedConfidence(t segment.Type, tier segment.Tier) (float64, bool) {
	rows, err := m.db.Query(`
		SELECT confidence, success, created_at
		FROM segment_outcomes
		WHERE segment_type = ? AND tier = ?`,
		string(t), string(tier),
	)
	if err != nil {
		log.Printf("[HIST] expected confidence query failed: %v", err)
		return 0, false
	}
	defer rows.Close()

	now := m.now()
	var weightedSum, totalWeight float64
	count := 0
	for rows.Next() {
		var conf float64
		var success int
		var createdAtStr string
		if err := rows.Scan(&conf, &success, &createdAtStr); err != nil {
			log.Printf("[HIST] scan outcome: %v", err)
			return 0, false
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		if success == 0 {
			conf = 0
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / halfLifeHours)
		weightedSum += conf * weight
		totalWeight += weight
		count++
	}
	if err := rows.Err(); err != nil || count < minSamples || totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}

// #endregion

// #region stats

// Stats summarizes every (type, tier) pair on record.
func (m *OutcomeMemory) Stats() ([]TypeStats, error) {
	rows, err := m.db.Query(`
		SELECT segment_type, tier, COUNT(*), AVG(confidence), AVG(success), AVG(escalated)
		FROM segment_outcomes
		GROUP BY segment_type, tier
		ORDER BY segment_type, tier`)
	if err != nil {
		return nil, fmt.Errorf("outcome stats: %w", err)
	}
	defer rows.Close()

	var out []TypeStats
	for rows.Next() {
		var s TypeStats
		var typ, tier string
		if err := rows.Scan(&typ, &tier, &s.Samples, &s.MeanConfidence, &s.SuccessRate, &s.EscalationRate); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		s.Type = segment.Type(typ)
		s.Tier = segment.Tier(tier)
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
