package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RunLog is the append-only run history backed by a single JSON array file.
// Every append reads the whole file, appends in memory, and writes the whole
// file back; the mutex serializes concurrent completions so none is lost.
type RunLog struct {
	mu   sync.Mutex
	path string

	// onAppend fires after a successful append, outside error paths.
	// Used to invalidate the run-history cache.
	onAppend func()
}

func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// SetOnAppend registers a hook invoked after every successful append.
func (l *RunLog) SetOnAppend(fn func()) {
	l.onAppend = fn
}

// load reads and parses the whole log file. A missing file is an empty log.
func (l *RunLog) load() ([]RunRecord, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []RunRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}

	records := make([]RunRecord, 0)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse run log JSON: %w", err)
	}
	return records, nil
}

// Append adds one record to the log file.
func (l *RunLog) Append(record RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return err
	}
	records = append(records, record)

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run log: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run log: %w", err)
	}

	if l.onAppend != nil {
		l.onAppend()
	}
	return nil
}

// ListRuns returns every logged run, oldest first.
func (l *RunLog) ListRuns() ([]RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// SearchRuns returns runs whose query contains the keyword,
// case-insensitively.
func (l *RunLog) SearchRuns(keyword string) ([]RunRecord, error) {
	records, err := l.ListRuns()
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(keyword)
	matches := make([]RunRecord, 0)
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Query), keyword) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// Stats aggregates the run history: totals, averages, the model with the
// highest average judge score, and the most recent run.
func (l *RunLog) Stats() (*RunStats, error) {
	records, err := l.ListRuns()
	if err != nil {
		return nil, err
	}

	stats := &RunStats{
		TotalRuns:          len(records),
		AverageConfidences: make(map[string]float64),
	}
	if len(records) == 0 {
		return stats, nil
	}

	var timeSum, iterationSum float64
	confidenceSums := make(map[string]float64)
	confidenceCounts := make(map[string]int)
	for _, record := range records {
		timeSum += record.ProcessingTime
		iterationSum += float64(record.TotalIterations)
		for model, score := range record.ConfidenceScores {
			confidenceSums[model] += score
			confidenceCounts[model]++
		}
	}

	stats.AverageProcessingTime = timeSum / float64(len(records))
	stats.AverageIterations = iterationSum / float64(len(records))

	best := ""
	bestScore := -1.0
	for model, sum := range confidenceSums {
		avg := sum / float64(confidenceCounts[model])
		stats.AverageConfidences[model] = avg
		if avg > bestScore {
			best = model
			bestScore = avg
		}
	}
	stats.BestPerformingModel = best

	latest := records[len(records)-1]
	stats.LatestQuery = latest.Query
	stats.LatestTimestamp = latest.Timestamp

	return stats, nil
}
