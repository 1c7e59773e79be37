package repository

import (
	"testing"
	"time"

	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func TestTogglePipeline(t *testing.T) {
	event := model.ManagerEvent{Timestamp: time.Now(), Action: "toggle-paused"}
	pipeline := togglePipeline("currentState.isPaused", event)
	if len(pipeline) != 1 || pipeline[0][0].Key != "$set" {
		t.Fatalf("unexpected pipeline: %v", pipeline)
	}
	set := pipeline[0][0].Value.(bson.M)

	not, ok := set["currentState.isPaused"].(bson.M)["$not"].(bson.A)
	if !ok || len(not) != 1 || not[0] != "$currentState.isPaused" {
		t.Errorf("expected negation of the current value, got %v", set["currentState.isPaused"])
	}

	slice, ok := set["history"].(bson.M)["$slice"].(bson.A)
	if !ok || len(slice) != 2 || slice[1] != -MaxHistoryEntries {
		t.Errorf("history must be capped at %d entries, got %v", MaxHistoryEntries, set["history"])
	}
	if _, ok := set["updatedAt"]; !ok {
		t.Error("toggle must bump updatedAt")
	}
}

func TestAcknowledgeUpdate(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	filter, update := acknowledgeUpdate(model.ManagerConfigName, 3, "ops", at)

	if filter["name"] != model.ManagerConfigName {
		t.Errorf("filter name = %v", filter["name"])
	}
	if _, ok := filter["alerts.3"]; !ok {
		t.Errorf("filter must require the alert slot to exist: %v", filter)
	}

	set := update["$set"].(bson.M)
	if set["alerts.3.acknowledged"] != true || set["alerts.3.acknowledgedBy"] != "ops" || set["alerts.3.acknowledgedAt"] != at {
		t.Errorf("unexpected $set: %v", set)
	}
}

func TestRunStatsFilter(t *testing.T) {
	if f := runStatsFilter(""); len(f) != 0 {
		t.Errorf("empty type must match all, got %v", f)
	}
	if f := runStatsFilter(model.WorkerStuck); f["workerType"] != model.WorkerStuck {
		t.Errorf("unexpected filter: %v", f)
	}
}
