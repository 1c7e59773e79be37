package model

import "time"

// WorkerStats is the processing overview served to the admin dashboard.
type WorkerStats struct {
	Total        int64           `json:"total"`
	Verification ProgressStats   `json:"verification"`
	Details      ProgressStats   `json:"details"`
	Status       StatusStats     `json:"status"`
	Processing   ProcessingStats `json:"processing"`
	Errors       ErrorStats      `json:"errors"`
	Timestamp    time.Time       `json:"timestamp"`
}

type ProgressStats struct {
	Pending   int64   `json:"pending"`
	Completed int64   `json:"completed"`
	Rate      float64 `json:"rate"`
}

type StatusStats struct {
	Valid   int64 `json:"valid"`
	Invalid int64 `json:"invalid"`
	Private int64 `json:"private"`
}

type ProcessingStats struct {
	Locked            int64 `json:"locked"`
	Stuck             int64 `json:"stuck"`
	RecentlyProcessed int64 `json:"recentlyProcessed"`
}

type ErrorStats struct {
	Total        int64         `json:"total"`
	Distribution []ErrorBucket `json:"distribution"`
}

type ErrorBucket struct {
	ErrorCount int   `json:"errorCount" bson:"_id"`
	Count      int64 `json:"count" bson:"count"`
}

type ActivityReport struct {
	RecentlyVerified []*CausaSummary `json:"recentlyVerified"`
	RecentlyUpdated  []*CausaSummary `json:"recentlyUpdated"`
	Period           string          `json:"period"`
}

// QueueEligibility breaks a worker queue down by why records are or are not
// handed out.
type QueueEligibility struct {
	Eligible    int64 `json:"eligible"`
	Locked      int64 `json:"locked"`
	ErrorCapped int64 `json:"errorCapped"`
}

type Eligibility struct {
	PendingVerification QueueEligibility `json:"pendingVerification"`
	PendingUpdate       QueueEligibility `json:"pendingUpdate"`
	MaxErrors           int              `json:"maxErrors"`
	Timestamp           time.Time        `json:"timestamp"`
}

// CausaStats is the collection overview served by the causas API.
type CausaStats struct {
	Total               int64           `json:"total"`
	Verified            int64           `json:"verified"`
	Valid               int64           `json:"valid"`
	Private             int64           `json:"private"`
	DetailsLoaded       int64           `json:"detailsLoaded"`
	PendingVerification int64           `json:"pendingVerification"`
	PendingDetails      int64           `json:"pendingDetails"`
	WithErrors          int64           `json:"withErrors"`
	EstadoDistribution  []EstadoBucket  `json:"estadoDistribution"`
	RecentActivity      []*CausaSummary `json:"recentActivity"`
}

type EstadoBucket struct {
	Estado string `json:"estado" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}
