package model

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// WorkerRunStats is written by each worker process, one document per
// workerType/workerId pair.
type WorkerRunStats struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	WorkerType WorkerType         `json:"workerType" bson:"workerType"`
	WorkerID   string             `json:"workerId" bson:"workerId"`
	CurrentRun *WorkerRun         `json:"currentRun" bson:"currentRun,omitempty"`
	RunHistory []WorkerRun        `json:"runHistory" bson:"runHistory"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type WorkerRun struct {
	StartedAt  time.Time  `json:"startedAt" bson:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	Status     string     `json:"status" bson:"status"`
	Processed  int64      `json:"processed" bson:"processed"`
	Succeeded  int64      `json:"succeeded" bson:"succeeded"`
	Failed     int64      `json:"failed" bson:"failed"`
	LastError  string     `json:"lastError,omitempty" bson:"lastError,omitempty"`
}

type RunHistory struct {
	CurrentRun *WorkerRun  `json:"currentRun"`
	RunHistory []WorkerRun `json:"runHistory"`
}

// RecentRuns returns the last limit runs, newest first.
func (s *WorkerRunStats) RecentRuns(limit int) RunHistory {
	runs := s.RunHistory
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	runs = append(make([]WorkerRun, 0, len(runs)), runs...)
	slices.Reverse(runs)
	return RunHistory{CurrentRun: s.CurrentRun, RunHistory: runs}
}

type TodaySummary struct {
	Date       string     `json:"date"`
	WorkerType WorkerType `json:"workerType,omitempty"`
	Workers    int        `json:"workers"`
	Active     int        `json:"active"`
	Runs       int        `json:"runs"`
	Processed  int64      `json:"processed"`
	Succeeded  int64      `json:"succeeded"`
	Failed     int64      `json:"failed"`
}

// SummarizeRuns totals the runs started at or after since, counting both
// finished runs and the one in progress.
func SummarizeRuns(stats []*WorkerRunStats, since time.Time) TodaySummary {
	summary := TodaySummary{Date: since.Format(time.DateOnly), Workers: len(stats)}
	add := func(r WorkerRun) {
		if r.StartedAt.Before(since) {
			return
		}
		summary.Runs++
		summary.Processed += r.Processed
		summary.Succeeded += r.Succeeded
		summary.Failed += r.Failed
	}

	for _, s := range stats {
		for _, r := range s.RunHistory {
			add(r)
		}
		if s.CurrentRun != nil {
			add(*s.CurrentRun)
			if s.CurrentRun.Status == RunStatusRunning {
				summary.Active++
			}
		}
	}
	return summary
}
