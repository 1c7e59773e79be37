package model

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ManagerConfigName = "eje-manager"

type WorkerType string

const (
	WorkerVerification WorkerType = "verification"
	WorkerUpdate       WorkerType = "update"
	WorkerStuck        WorkerType = "stuck"
)

var WorkerTypes = []WorkerType{WorkerVerification, WorkerUpdate, WorkerStuck}

func ParseWorkerType(s string) (WorkerType, bool) {
	t := WorkerType(s)
	return t, slices.Contains(WorkerTypes, t)
}

const (
	ScheduleSourceGlobal = "global"
	ScheduleSourceWorker = "worker-specific"
)

// ManagerConfig is the singleton document read and written by the worker
// manager process: its tuning, the state it reports, and the alerts, history
// and daily counters it accumulates.
type ManagerConfig struct {
	ID           primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Name         string              `json:"name" bson:"name"`
	Config       ManagerSettings     `json:"config" bson:"config"`
	CurrentState ManagerState        `json:"currentState" bson:"currentState"`
	Alerts       []ManagerAlert      `json:"alerts" bson:"alerts"`
	History      []ManagerEvent      `json:"history" bson:"history"`
	DailyStats   []ManagerDailyStats `json:"dailyStats" bson:"dailyStats"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type ManagerSettings struct {
	CheckInterval        int                     `json:"checkInterval" bson:"checkInterval"` // ms
	LockTimeoutMinutes   int                     `json:"lockTimeoutMinutes" bson:"lockTimeoutMinutes"`
	MaxWorkers           int                     `json:"maxWorkers" bson:"maxWorkers"`
	MinWorkers           int                     `json:"minWorkers" bson:"minWorkers"`
	ScaleUpThreshold     int                     `json:"scaleUpThreshold" bson:"scaleUpThreshold"`     // pending records
	ScaleDownThreshold   int                     `json:"scaleDownThreshold" bson:"scaleDownThreshold"` // pending records
	UpdateThresholdHours int                     `json:"updateThresholdHours" bson:"updateThresholdHours"`
	CPUThreshold         int                     `json:"cpuThreshold" bson:"cpuThreshold"`       // percent
	MemoryThreshold      int                     `json:"memoryThreshold" bson:"memoryThreshold"` // percent
	WorkStartHour        int                     `json:"workStartHour" bson:"workStartHour"`
	WorkEndHour          int                     `json:"workEndHour" bson:"workEndHour"`
	WorkDays             []int                   `json:"workDays" bson:"workDays"` // 0 = Sunday
	Timezone             string                  `json:"timezone" bson:"timezone"`
	WorkerNames          WorkerNames             `json:"workerNames" bson:"workerNames"`
	Workers              map[string]WorkerConfig `json:"workers" bson:"workers"`
}

type WorkerNames struct {
	Verification string `json:"verification" bson:"verification"`
	Update       string `json:"update" bson:"update"`
	Stuck        string `json:"stuck" bson:"stuck"`
}

type WorkerConfig struct {
	Enabled              bool           `json:"enabled" bson:"enabled"`
	MinWorkers           int            `json:"minWorkers" bson:"minWorkers"`
	MaxWorkers           int            `json:"maxWorkers" bson:"maxWorkers"`
	ScaleUpThreshold     int            `json:"scaleUpThreshold" bson:"scaleUpThreshold"`
	ScaleDownThreshold   int            `json:"scaleDownThreshold" bson:"scaleDownThreshold"`
	UpdateThresholdHours int            `json:"updateThresholdHours,omitempty" bson:"updateThresholdHours,omitempty"`
	BatchSize            int            `json:"batchSize" bson:"batchSize"`
	DelayBetweenRequests int            `json:"delayBetweenRequests" bson:"delayBetweenRequests"` // ms
	MaxRetries           int            `json:"maxRetries" bson:"maxRetries"`
	CronExpression       string         `json:"cronExpression,omitempty" bson:"cronExpression,omitempty"`
	WorkerName           string         `json:"workerName" bson:"workerName"`
	WorkerScript         string         `json:"workerScript,omitempty" bson:"workerScript,omitempty"`
	MaxMemoryRestart     string         `json:"maxMemoryRestart,omitempty" bson:"maxMemoryRestart,omitempty"`
	Schedule             WorkerSchedule `json:"schedule" bson:"schedule"`
}

// WorkerSchedule overrides the global work window. A missing
// useGlobalSchedule means the global window applies.
type WorkerSchedule struct {
	WorkStartHour     *int  `json:"workStartHour,omitempty" bson:"workStartHour,omitempty"`
	WorkEndHour       *int  `json:"workEndHour,omitempty" bson:"workEndHour,omitempty"`
	WorkDays          []int `json:"workDays,omitempty" bson:"workDays,omitempty"`
	UseGlobalSchedule *bool `json:"useGlobalSchedule,omitempty" bson:"useGlobalSchedule,omitempty"`
}

func (s WorkerSchedule) UsesGlobal() bool {
	return s.UseGlobalSchedule == nil || *s.UseGlobalSchedule
}

type ManagerState struct {
	IsRunning       bool                    `json:"isRunning" bson:"isRunning"`
	IsPaused        bool                    `json:"isPaused" bson:"isPaused"`
	LastCycleAt     *time.Time              `json:"lastCycleAt,omitempty" bson:"lastCycleAt,omitempty"`
	CycleCount      int64                   `json:"cycleCount" bson:"cycleCount"`
	SystemResources SystemResources         `json:"systemResources" bson:"systemResources"`
	Workers         map[string]WorkerStatus `json:"workers" bson:"workers"`
}

type SystemResources struct {
	CPUUsage    float64    `json:"cpuUsage" bson:"cpuUsage"`
	MemoryUsage float64    `json:"memoryUsage" bson:"memoryUsage"`
	CheckedAt   *time.Time `json:"checkedAt,omitempty" bson:"checkedAt,omitempty"`
}

type WorkerStatus struct {
	ActiveWorkers int        `json:"activeWorkers" bson:"activeWorkers"`
	PendingCount  int64      `json:"pendingCount" bson:"pendingCount"`
	LastScaledAt  *time.Time `json:"lastScaledAt,omitempty" bson:"lastScaledAt,omitempty"`
	Status        string     `json:"status,omitempty" bson:"status,omitempty"`
}

// ManagerAlert is raised by the manager. Index is its position in the stored
// array and is what acknowledgement addresses.
type ManagerAlert struct {
	Index          int        `json:"index" bson:"-"`
	Type           string     `json:"type" bson:"type"`
	Severity       string     `json:"severity" bson:"severity"`
	Message        string     `json:"message" bson:"message"`
	Timestamp      time.Time  `json:"timestamp" bson:"timestamp"`
	Acknowledged   bool       `json:"acknowledged" bson:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledgedBy,omitempty" bson:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
}

type ManagerEvent struct {
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Action    string         `json:"action" bson:"action"`
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`
}

type ManagerDailyStats struct {
	Date        string `json:"date" bson:"date"` // YYYY-MM-DD
	Cycles      int64  `json:"cycles" bson:"cycles"`
	ScaleUps    int64  `json:"scaleUps" bson:"scaleUps"`
	ScaleDowns  int64  `json:"scaleDowns" bson:"scaleDowns"`
	Processed   int64  `json:"processed" bson:"processed"`
	Errors      int64  `json:"errors" bson:"errors"`
	PeakWorkers int    `json:"peakWorkers" bson:"peakWorkers"`
}

func defaultWorkerConfig(name string) WorkerConfig {
	return WorkerConfig{
		Enabled:              true,
		MinWorkers:           1,
		MaxWorkers:           3,
		ScaleUpThreshold:     100,
		ScaleDownThreshold:   10,
		BatchSize:            10,
		DelayBetweenRequests: 2000,
		MaxRetries:           3,
		WorkerName:           name,
	}
}

func DefaultManagerConfig(now time.Time) *ManagerConfig {
	names := WorkerNames{
		Verification: "eje-verification-worker",
		Update:       "eje-update-worker",
		Stuck:        "eje-stuck-worker",
	}
	return &ManagerConfig{
		Name: ManagerConfigName,
		Config: ManagerSettings{
			CheckInterval:        60000,
			LockTimeoutMinutes:   10,
			MaxWorkers:           5,
			MinWorkers:           1,
			ScaleUpThreshold:     100,
			ScaleDownThreshold:   10,
			UpdateThresholdHours: 24,
			CPUThreshold:         80,
			MemoryThreshold:      85,
			WorkStartHour:        8,
			WorkEndHour:          20,
			WorkDays:             []int{1, 2, 3, 4, 5},
			Timezone:             "America/Argentina/Buenos_Aires",
			WorkerNames:          names,
			Workers: map[string]WorkerConfig{
				string(WorkerVerification): defaultWorkerConfig(names.Verification),
				string(WorkerUpdate):       defaultWorkerConfig(names.Update),
				string(WorkerStuck):        defaultWorkerConfig(names.Stuck),
			},
		},
		CurrentState: ManagerState{Workers: map[string]WorkerStatus{}},
		Alerts:       []ManagerAlert{},
		History:      []ManagerEvent{},
		DailyStats:   []ManagerDailyStats{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type EffectiveSchedule struct {
	WorkStartHour     int    `json:"workStartHour"`
	WorkEndHour       int    `json:"workEndHour"`
	WorkDays          []int  `json:"workDays"`
	UseGlobalSchedule bool   `json:"useGlobalSchedule"`
	Source            string `json:"source"`
}

type GlobalSettings struct {
	CheckInterval        int    `json:"checkInterval"`
	LockTimeoutMinutes   int    `json:"lockTimeoutMinutes"`
	UpdateThresholdHours int    `json:"updateThresholdHours"`
	CPUThreshold         int    `json:"cpuThreshold"`
	MemoryThreshold      int    `json:"memoryThreshold"`
	WorkStartHour        int    `json:"workStartHour"`
	WorkEndHour          int    `json:"workEndHour"`
	WorkDays             []int  `json:"workDays"`
	Timezone             string `json:"timezone"`
}

func (s ManagerSettings) Global() GlobalSettings {
	return GlobalSettings{
		CheckInterval:        s.CheckInterval,
		LockTimeoutMinutes:   s.LockTimeoutMinutes,
		UpdateThresholdHours: s.UpdateThresholdHours,
		CPUThreshold:         s.CPUThreshold,
		MemoryThreshold:      s.MemoryThreshold,
		WorkStartHour:        s.WorkStartHour,
		WorkEndHour:          s.WorkEndHour,
		WorkDays:             s.WorkDays,
		Timezone:             s.Timezone,
	}
}

// EffectiveSchedule resolves the work window a worker type runs under.
// Override fields left unset fall back to the global value.
func (s ManagerSettings) EffectiveSchedule(t WorkerType) EffectiveSchedule {
	global := EffectiveSchedule{
		WorkStartHour:     s.WorkStartHour,
		WorkEndHour:       s.WorkEndHour,
		WorkDays:          s.WorkDays,
		UseGlobalSchedule: true,
		Source:            ScheduleSourceGlobal,
	}
	sched := s.Workers[string(t)].Schedule
	if sched.UsesGlobal() {
		return global
	}

	eff := global
	eff.UseGlobalSchedule = false
	eff.Source = ScheduleSourceWorker
	if sched.WorkStartHour != nil {
		eff.WorkStartHour = *sched.WorkStartHour
	}
	if sched.WorkEndHour != nil {
		eff.WorkEndHour = *sched.WorkEndHour
	}
	if sched.WorkDays != nil {
		eff.WorkDays = sched.WorkDays
	}
	return eff
}

type WorkerView struct {
	WorkerType        WorkerType        `json:"workerType"`
	Config            WorkerConfig      `json:"config"`
	Status            WorkerStatus      `json:"status"`
	EffectiveSchedule EffectiveSchedule `json:"effectiveSchedule"`
}

func (c *ManagerConfig) Worker(t WorkerType) WorkerView {
	return WorkerView{
		WorkerType:        t,
		Config:            c.Config.Workers[string(t)],
		Status:            c.CurrentState.Workers[string(t)],
		EffectiveSchedule: c.Config.EffectiveSchedule(t),
	}
}

type WorkerDetail struct {
	WorkerView
	GlobalSettings GlobalSettings `json:"globalSettings"`
}

type WorkersOverview struct {
	Workers        []WorkerView   `json:"workers"`
	GlobalSettings GlobalSettings `json:"globalSettings"`
	ManagerState   ManagerState   `json:"managerState"`
}

// ManagerOverview is the compact view workers poll: settings, state, the
// latest unacknowledged alerts and the last week of counters.
type ManagerOverview struct {
	Config       ManagerSettings     `json:"config"`
	CurrentState ManagerState        `json:"currentState"`
	Alerts       []ManagerAlert      `json:"alerts"`
	DailyStats   []ManagerDailyStats `json:"dailyStats"`
}

type ManagerHistory struct {
	Entries []ManagerEvent `json:"entries"`
	Period  string         `json:"period"`
	Count   int            `json:"count"`
}

type AlertList struct {
	Alerts []ManagerAlert `json:"alerts"`
	Total  int            `json:"total"`
}

// GlobalSettingsUpdate is the whitelisted body of PATCH /manager/settings.
type GlobalSettingsUpdate struct {
	CheckInterval        *int    `json:"checkInterval,omitempty" validate:"omitempty,min=1000,max=3600000"`
	LockTimeoutMinutes   *int    `json:"lockTimeoutMinutes,omitempty" validate:"omitempty,min=1,max=1440"`
	UpdateThresholdHours *int    `json:"updateThresholdHours,omitempty" validate:"omitempty,min=1,max=720"`
	CPUThreshold         *int    `json:"cpuThreshold,omitempty" validate:"omitempty,min=1,max=100"`
	MemoryThreshold      *int    `json:"memoryThreshold,omitempty" validate:"omitempty,min=1,max=100"`
	WorkStartHour        *int    `json:"workStartHour,omitempty" validate:"omitempty,min=0,max=23"`
	WorkEndHour          *int    `json:"workEndHour,omitempty" validate:"omitempty,min=0,max=24"`
	WorkDays             []int   `json:"workDays,omitempty" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	Timezone             *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

func (u *GlobalSettingsUpdate) SetFields() map[string]any {
	set := make(map[string]any)
	putInt(set, "config.checkInterval", u.CheckInterval)
	putInt(set, "config.lockTimeoutMinutes", u.LockTimeoutMinutes)
	putInt(set, "config.updateThresholdHours", u.UpdateThresholdHours)
	putInt(set, "config.cpuThreshold", u.CPUThreshold)
	putInt(set, "config.memoryThreshold", u.MemoryThreshold)
	putInt(set, "config.workStartHour", u.WorkStartHour)
	putInt(set, "config.workEndHour", u.WorkEndHour)
	if u.WorkDays != nil {
		set["config.workDays"] = u.WorkDays
	}
	putString(set, "config.timezone", u.Timezone)
	return set
}

// ManagerSettingsUpdate is the whitelisted body of PATCH /manager: the
// global settings plus the scaling knobs and process names.
type ManagerSettingsUpdate struct {
	CheckInterval        *int               `json:"checkInterval,omitempty" validate:"omitempty,min=1000,max=3600000"`
	LockTimeoutMinutes   *int               `json:"lockTimeoutMinutes,omitempty" validate:"omitempty,min=1,max=1440"`
	UpdateThresholdHours *int               `json:"updateThresholdHours,omitempty" validate:"omitempty,min=1,max=720"`
	CPUThreshold         *int               `json:"cpuThreshold,omitempty" validate:"omitempty,min=1,max=100"`
	MemoryThreshold      *int               `json:"memoryThreshold,omitempty" validate:"omitempty,min=1,max=100"`
	WorkStartHour        *int               `json:"workStartHour,omitempty" validate:"omitempty,min=0,max=23"`
	WorkEndHour          *int               `json:"workEndHour,omitempty" validate:"omitempty,min=0,max=24"`
	WorkDays             []int              `json:"workDays,omitempty" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	Timezone             *string            `json:"timezone,omitempty" validate:"omitempty,timezone"`
	MaxWorkers           *int               `json:"maxWorkers,omitempty" validate:"omitempty,min=1,max=50"`
	MinWorkers           *int               `json:"minWorkers,omitempty" validate:"omitempty,min=0,max=50"`
	ScaleUpThreshold     *int               `json:"scaleUpThreshold,omitempty" validate:"omitempty,min=0"`
	ScaleDownThreshold   *int               `json:"scaleDownThreshold,omitempty" validate:"omitempty,min=0"`
	WorkerNames          *WorkerNamesUpdate `json:"workerNames,omitempty"`
}

type WorkerNamesUpdate struct {
	Verification *string `json:"verification,omitempty" validate:"omitempty,min=1,max=100"`
	Update       *string `json:"update,omitempty" validate:"omitempty,min=1,max=100"`
	Stuck        *string `json:"stuck,omitempty" validate:"omitempty,min=1,max=100"`
}

func (u *ManagerSettingsUpdate) Global() *GlobalSettingsUpdate {
	return &GlobalSettingsUpdate{
		CheckInterval:        u.CheckInterval,
		LockTimeoutMinutes:   u.LockTimeoutMinutes,
		UpdateThresholdHours: u.UpdateThresholdHours,
		CPUThreshold:         u.CPUThreshold,
		MemoryThreshold:      u.MemoryThreshold,
		WorkStartHour:        u.WorkStartHour,
		WorkEndHour:          u.WorkEndHour,
		WorkDays:             u.WorkDays,
		Timezone:             u.Timezone,
	}
}

func (u *ManagerSettingsUpdate) SetFields() map[string]any {
	set := u.Global().SetFields()
	putInt(set, "config.maxWorkers", u.MaxWorkers)
	putInt(set, "config.minWorkers", u.MinWorkers)
	putInt(set, "config.scaleUpThreshold", u.ScaleUpThreshold)
	putInt(set, "config.scaleDownThreshold", u.ScaleDownThreshold)
	if n := u.WorkerNames; n != nil {
		putString(set, "config.workerNames.verification", n.Verification)
		putString(set, "config.workerNames.update", n.Update)
		putString(set, "config.workerNames.stuck", n.Stuck)
	}
	return set
}

// WorkerConfigUpdate is the whitelisted body of PATCH /manager/worker/:workerType.
type WorkerConfigUpdate struct {
	Enabled              *bool                 `json:"enabled,omitempty"`
	MinWorkers           *int                  `json:"minWorkers,omitempty" validate:"omitempty,min=0,max=50"`
	MaxWorkers           *int                  `json:"maxWorkers,omitempty" validate:"omitempty,min=1,max=50"`
	ScaleUpThreshold     *int                  `json:"scaleUpThreshold,omitempty" validate:"omitempty,min=0"`
	ScaleDownThreshold   *int                  `json:"scaleDownThreshold,omitempty" validate:"omitempty,min=0"`
	UpdateThresholdHours *int                  `json:"updateThresholdHours,omitempty" validate:"omitempty,min=1,max=720"`
	BatchSize            *int                  `json:"batchSize,omitempty" validate:"omitempty,min=1,max=500"`
	DelayBetweenRequests *int                  `json:"delayBetweenRequests,omitempty" validate:"omitempty,min=0,max=600000"`
	MaxRetries           *int                  `json:"maxRetries,omitempty" validate:"omitempty,min=0,max=100"`
	CronExpression       *string               `json:"cronExpression,omitempty" validate:"omitempty,cron"`
	WorkerName           *string               `json:"workerName,omitempty" validate:"omitempty,min=1,max=100"`
	WorkerScript         *string               `json:"workerScript,omitempty" validate:"omitempty,max=255"`
	MaxMemoryRestart     *string               `json:"maxMemoryRestart,omitempty" validate:"omitempty,max=16"`
	Schedule             *WorkerScheduleUpdate `json:"schedule,omitempty"`
}

type WorkerScheduleUpdate struct {
	WorkStartHour     *int  `json:"workStartHour,omitempty" validate:"omitempty,min=0,max=23"`
	WorkEndHour       *int  `json:"workEndHour,omitempty" validate:"omitempty,min=0,max=24"`
	WorkDays          []int `json:"workDays,omitempty" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	UseGlobalSchedule *bool `json:"useGlobalSchedule,omitempty"`
}

// SetFields flattens the update into $set paths under config.workers.<t>.
func (u *WorkerConfigUpdate) SetFields(t WorkerType) map[string]any {
	prefix := "config.workers." + string(t) + "."
	set := make(map[string]any)
	if u.Enabled != nil {
		set[prefix+"enabled"] = *u.Enabled
	}
	putInt(set, prefix+"minWorkers", u.MinWorkers)
	putInt(set, prefix+"maxWorkers", u.MaxWorkers)
	putInt(set, prefix+"scaleUpThreshold", u.ScaleUpThreshold)
	putInt(set, prefix+"scaleDownThreshold", u.ScaleDownThreshold)
	putInt(set, prefix+"updateThresholdHours", u.UpdateThresholdHours)
	putInt(set, prefix+"batchSize", u.BatchSize)
	putInt(set, prefix+"delayBetweenRequests", u.DelayBetweenRequests)
	putInt(set, prefix+"maxRetries", u.MaxRetries)
	putString(set, prefix+"cronExpression", u.CronExpression)
	putString(set, prefix+"workerName", u.WorkerName)
	putString(set, prefix+"workerScript", u.WorkerScript)
	putString(set, prefix+"maxMemoryRestart", u.MaxMemoryRestart)
	if s := u.Schedule; s != nil {
		putInt(set, prefix+"schedule.workStartHour", s.WorkStartHour)
		putInt(set, prefix+"schedule.workEndHour", s.WorkEndHour)
		if s.WorkDays != nil {
			set[prefix+"schedule.workDays"] = s.WorkDays
		}
		if s.UseGlobalSchedule != nil {
			set[prefix+"schedule.useGlobalSchedule"] = *s.UseGlobalSchedule
		}
	}
	return set
}

func putInt(set map[string]any, key string, v *int) {
	if v != nil {
		set[key] = *v
	}
}

func putString(set map[string]any, key string, v *string) {
	if v != nil {
		set[key] = *v
	}
}
