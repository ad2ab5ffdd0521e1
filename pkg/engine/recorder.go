package engine

import "time"

// Recorder receives evaluation measurements. The metrics collector
// implements it; a nil Recorder disables recording.
type Recorder interface {
	// RecordEvaluation records one finished evaluation. status is "success"
	// or the error class ("config", "data", "rule", "canceled").
	RecordEvaluation(status string, rows int, duration time.Duration)

	// RecordRule records the execution time of one rule over one partition.
	RecordRule(rule string, duration time.Duration)

	// RecordPlanCache records a plan cache lookup.
	RecordPlanCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(string, int, time.Duration) {}
func (nopRecorder) RecordRule(string, time.Duration)            {}
func (nopRecorder) RecordPlanCache(bool)                        {}
