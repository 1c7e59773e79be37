package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultSettingsName = "default"

// WorkerSettings is the configuration document read by the external workers.
type WorkerSettings struct {
	ID                   primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name                 string             `json:"name" bson:"name"`
	Enabled              bool               `json:"enabled" bson:"enabled"`
	WorkerCount          int                `json:"workerCount" bson:"workerCount"`
	BatchSize            int                `json:"batchSize" bson:"batchSize"`
	DelayBetweenRequests int                `json:"delayBetweenRequests" bson:"delayBetweenRequests"` // ms
	DelayBetweenBatches  int                `json:"delayBetweenBatches" bson:"delayBetweenBatches"`   // ms
	MaxErrorsBeforeStop  int                `json:"maxErrorsBeforeStop" bson:"maxErrorsBeforeStop"`
	Schedule             WorkSchedule       `json:"schedule" bson:"schedule"`
	RateLimit            WorkerRateLimit    `json:"rateLimit" bson:"rateLimit"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type WorkSchedule struct {
	Enabled   bool   `json:"enabled" bson:"enabled"`
	StartHour int    `json:"startHour" bson:"startHour"`
	EndHour   int    `json:"endHour" bson:"endHour"`
	WorkDays  []int  `json:"workDays" bson:"workDays"` // 0 = Sunday
	Timezone  string `json:"timezone" bson:"timezone"`
}

type WorkerRateLimit struct {
	MaxRequestsPerMinute int `json:"maxRequestsPerMinute" bson:"maxRequestsPerMinute"`
	MaxRequestsPerHour   int `json:"maxRequestsPerHour" bson:"maxRequestsPerHour"`
}

func DefaultWorkerSettings(now time.Time) *WorkerSettings {
	return &WorkerSettings{
		Name:                 DefaultSettingsName,
		Enabled:              true,
		WorkerCount:          3,
		BatchSize:            10,
		DelayBetweenRequests: 2000,
		DelayBetweenBatches:  5000,
		MaxErrorsBeforeStop:  10,
		Schedule: WorkSchedule{
			Enabled:   true,
			StartHour: 8,
			EndHour:   20,
			WorkDays:  []int{1, 2, 3, 4, 5},
			Timezone:  "America/Argentina/Buenos_Aires",
		},
		RateLimit: WorkerRateLimit{
			MaxRequestsPerMinute: 30,
			MaxRequestsPerHour:   1000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WorkerSettingsUpdate is the whitelisted PATCH body.
type WorkerSettingsUpdate struct {
	Enabled              *bool                  `json:"enabled,omitempty"`
	WorkerCount          *int                   `json:"workerCount,omitempty" validate:"omitempty,min=1,max=50"`
	BatchSize            *int                   `json:"batchSize,omitempty" validate:"omitempty,min=1,max=500"`
	DelayBetweenRequests *int                   `json:"delayBetweenRequests,omitempty" validate:"omitempty,min=0,max=600000"`
	DelayBetweenBatches  *int                   `json:"delayBetweenBatches,omitempty" validate:"omitempty,min=0,max=3600000"`
	MaxErrorsBeforeStop  *int                   `json:"maxErrorsBeforeStop,omitempty" validate:"omitempty,min=1,max=1000"`
	Schedule             *WorkScheduleUpdate    `json:"schedule,omitempty"`
	RateLimit            *WorkerRateLimitUpdate `json:"rateLimit,omitempty"`
}

type WorkScheduleUpdate struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	StartHour *int    `json:"startHour,omitempty" validate:"omitempty,min=0,max=23"`
	EndHour   *int    `json:"endHour,omitempty" validate:"omitempty,min=0,max=24"`
	WorkDays  []int   `json:"workDays,omitempty" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	Timezone  *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

type WorkerRateLimitUpdate struct {
	MaxRequestsPerMinute *int `json:"maxRequestsPerMinute,omitempty" validate:"omitempty,min=1"`
	MaxRequestsPerHour   *int `json:"maxRequestsPerHour,omitempty" validate:"omitempty,min=1"`
}

// SetFields flattens the update into dotted $set paths.
func (u *WorkerSettingsUpdate) SetFields() map[string]any {
	set := make(map[string]any)
	if u.Enabled != nil {
		set["enabled"] = *u.Enabled
	}
	if u.WorkerCount != nil {
		set["workerCount"] = *u.WorkerCount
	}
	if u.BatchSize != nil {
		set["batchSize"] = *u.BatchSize
	}
	if u.DelayBetweenRequests != nil {
		set["delayBetweenRequests"] = *u.DelayBetweenRequests
	}
	if u.DelayBetweenBatches != nil {
		set["delayBetweenBatches"] = *u.DelayBetweenBatches
	}
	if u.MaxErrorsBeforeStop != nil {
		set["maxErrorsBeforeStop"] = *u.MaxErrorsBeforeStop
	}
	if s := u.Schedule; s != nil {
		if s.Enabled != nil {
			set["schedule.enabled"] = *s.Enabled
		}
		if s.StartHour != nil {
			set["schedule.startHour"] = *s.StartHour
		}
		if s.EndHour != nil {
			set["schedule.endHour"] = *s.EndHour
		}
		if s.WorkDays != nil {
			set["schedule.workDays"] = s.WorkDays
		}
		if s.Timezone != nil {
			set["schedule.timezone"] = *s.Timezone
		}
	}
	if r := u.RateLimit; r != nil {
		if r.MaxRequestsPerMinute != nil {
			set["rateLimit.maxRequestsPerMinute"] = *r.MaxRequestsPerMinute
		}
		if r.MaxRequestsPerHour != nil {
			set["rateLimit.maxRequestsPerHour"] = *r.MaxRequestsPerHour
		}
	}
	return set
}
