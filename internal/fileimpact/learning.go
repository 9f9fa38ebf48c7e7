package fileimpact

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// minSamplesForBlend is the number of recorded outcomes a pattern needs
// before its learned accuracy is allowed to influence a prediction's
// confidence; below this the pattern is too new to trust.
const minSamplesForBlend = 5

// LearningStore tracks the running-average prediction accuracy of each
// (category, glob, operation) pattern, adapted from the teacher's
// adaptive learning store (ApproachHistory's success/failure counters),
// retargeted here at file-impact patterns instead of task-retry
// approaches. It shares the orchestrator's sqlite connection rather than
// opening its own.
type LearningStore struct {
	db *sql.DB
}

// NewLearningStore wraps an existing database connection; the
// impact_patterns table is created by the store package's embedded
// schema.
func NewLearningStore(db *sql.DB) *LearningStore {
	return &LearningStore{db: db}
}

type patternStats struct {
	accuracy    float64
	sampleCount int
}

func (l *LearningStore) lookup(ctx context.Context, category models.Category, glob string, operation models.ImpactOperation) (patternStats, bool, error) {
	var stats patternStats
	err := l.db.QueryRowContext(ctx, `SELECT accuracy, sample_count FROM impact_patterns
		WHERE category = ? AND glob = ? AND operation = ?`, category, glob, operation).
		Scan(&stats.accuracy, &stats.sampleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return patternStats{}, false, nil
	}
	if err != nil {
		return patternStats{}, false, err
	}
	return stats, true, nil
}

// adjustConfidence blends each prediction's confidence with its learned
// pattern accuracy once enough samples exist, so patterns the analyser
// has historically gotten wrong are down-weighted over time.
func (l *LearningStore) adjustConfidence(predictions []models.FileImpact, category models.Category) []models.FileImpact {
	ctx := context.Background()
	for i, p := range predictions {
		stats, found, err := l.lookup(ctx, category, p.Path, p.Operation)
		if err != nil || !found || stats.sampleCount < minSamplesForBlend {
			continue
		}
		predictions[i].Confidence = models.ClampConfidence(0.5*p.Confidence + 0.5*stats.accuracy)
	}
	return predictions
}

// PatternStat is one (category, glob, operation) pattern's learned
// running-average accuracy, exported for the `foreman learning`
// subcommands.
type PatternStat struct {
	Category    models.Category
	Glob        string
	Operation   models.ImpactOperation
	Accuracy    float64
	SampleCount int
}

// Stats returns every learned pattern, ordered by sample count
// descending, for the `foreman learning stats`/`export` CLI.
func (l *LearningStore) Stats(ctx context.Context) ([]PatternStat, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT category, glob, operation, accuracy, sample_count
		FROM impact_patterns ORDER BY sample_count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PatternStat
	for rows.Next() {
		var s PatternStat
		if err := rows.Scan(&s.Category, &s.Glob, &s.Operation, &s.Accuracy, &s.SampleCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// RecordOutcome folds one evaluated prediction (did the task actually
// touch this path the way it was predicted to?) into the pattern's
// running average accuracy, creating the row on first observation.
func (l *LearningStore) RecordOutcome(ctx context.Context, category models.Category, glob string, operation models.ImpactOperation, accurate bool) error {
	outcome := 0.0
	if accurate {
		outcome = 1.0
	}

	stats, found, err := l.lookup(ctx, category, glob, operation)
	if err != nil {
		return err
	}
	if !found {
		_, err := l.db.ExecContext(ctx, `INSERT INTO impact_patterns
			(category, glob, operation, accuracy, sample_count, updated_at) VALUES (?,?,?,?,?,?)`,
			category, glob, operation, outcome, 1, time.Now().UTC())
		return err
	}

	newCount := stats.sampleCount + 1
	newAccuracy := stats.accuracy + (outcome-stats.accuracy)/float64(newCount)
	_, err = l.db.ExecContext(ctx, `UPDATE impact_patterns SET accuracy = ?, sample_count = ?, updated_at = ?
		WHERE category = ? AND glob = ? AND operation = ?`,
		newAccuracy, newCount, time.Now().UTC(), category, glob, operation)
	return err
}
