package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

func baseMaster() *domain.JobMaster {
	ttl := 604800
	return &domain.JobMaster{
		ID:     uuid.New(),
		Name:   "sync-orders",
		Method: "POST",
		URL:    "https://api.example.com/orders",
		Headers: map[string]any{
			"Authorization": "Bearer default",
			"Accept":        "application/json",
		},
		Params: map[string]any{"source": "master"},
		Body: map[string]any{
			"user": map[string]any{"name": "alice", "age": float64(30)},
		},
		TimeoutSec:      30,
		MaxAttempts:     3,
		BackoffStrategy: domain.BackoffExponential,
		BackoffSeconds:  5,
		Priority:        5,
		TTLSeconds:      &ttl,
		Tags:            []string{"orders", "sync"},
		CurrentVersion:  4,
		IsActive:        true,
	}
}

func TestInstantiateJob_Defaults(t *testing.T) {
	master := baseMaster()

	job := InstantiateJob(master, domain.JobOverrides{})

	if job.Status != domain.JobStatusQueued {
		t.Errorf("expected QUEUED, got %s", job.Status)
	}
	if job.MasterID == nil || *job.MasterID != master.ID {
		t.Error("job should reference its master")
	}
	if job.MasterVersion == nil || *job.MasterVersion != 4 {
		t.Errorf("job should pin master version 4, got %v", job.MasterVersion)
	}
	if job.Method != "POST" || job.URL != master.URL {
		t.Error("method and url always come from the master")
	}
	if job.Attempt != 1 || job.MaxAttempts != 3 {
		t.Errorf("attempt counters wrong: %d/%d", job.Attempt, job.MaxAttempts)
	}
	if job.NextAttemptAt == nil {
		t.Fatal("next_attempt_at should be set for immediate execution")
	}
	if time.Until(*job.NextAttemptAt) > time.Second {
		t.Error("next_attempt_at should be approximately now")
	}
	if !reflect.DeepEqual(job.Headers, master.Headers) {
		t.Errorf("headers should pass through, got %v", job.Headers)
	}
}

func TestInstantiateJob_Overrides(t *testing.T) {
	master := baseMaster()
	timeout := 5
	maxAttempts := 7
	strategy := domain.BackoffLinear
	priority := 1

	job := InstantiateJob(master, domain.JobOverrides{
		Name:    "one-off sync",
		Headers: map[string]any{"Authorization": "Bearer override"},
		Params:  map[string]any{"dry_run": true},
		Body: map[string]any{
			"user": map[string]any{"age": float64(31)},
		},
		Tags:            []string{"manual"},
		TimeoutSec:      &timeout,
		MaxAttempts:     &maxAttempts,
		BackoffStrategy: &strategy,
		Priority:        &priority,
	})

	if job.Name != "one-off sync" {
		t.Errorf("override name expected, got %q", job.Name)
	}
	if job.TimeoutSec != 5 || job.MaxAttempts != 7 || job.Priority != 1 {
		t.Error("scalar overrides should replace master defaults")
	}
	if job.BackoffStrategy != domain.BackoffLinear {
		t.Errorf("expected linear backoff, got %s", job.BackoffStrategy)
	}

	// Headers: shallow merge, override побеждает.
	if job.Headers["Authorization"] != "Bearer override" {
		t.Errorf("override header should win, got %v", job.Headers["Authorization"])
	}
	if job.Headers["Accept"] != "application/json" {
		t.Error("untouched master header should survive")
	}

	// Params: shallow merge обоих источников.
	if job.Params["source"] != "master" || job.Params["dry_run"] != true {
		t.Errorf("params merge wrong: %v", job.Params)
	}

	// Body: deep merge.
	body, ok := job.Body.(map[string]any)
	if !ok {
		t.Fatalf("body should be a map, got %T", job.Body)
	}
	user := body["user"].(map[string]any)
	if user["name"] != "alice" || user["age"] != float64(31) {
		t.Errorf("deep merge wrong: %v", user)
	}

	// Tags: union + сортировка.
	expectedTags := []string{"manual", "orders", "sync"}
	if !reflect.DeepEqual(job.Tags, expectedTags) {
		t.Errorf("expected %v, got %v", expectedTags, job.Tags)
	}
}

func TestInstantiateJob_ScheduledAt(t *testing.T) {
	master := baseMaster()
	at := time.Now().UTC().Add(time.Hour)

	job := InstantiateJob(master, domain.JobOverrides{ScheduledAt: &at})

	if job.ScheduledAt == nil || !job.ScheduledAt.Equal(at) {
		t.Error("scheduled_at should be preserved")
	}
	if job.NextAttemptAt == nil || !job.NextAttemptAt.Equal(at) {
		t.Error("deferred job should not be eligible before scheduled_at")
	}
}

func TestInstantiateJob_NonMappingBodyOverride(t *testing.T) {
	master := baseMaster()

	job := InstantiateJob(master, domain.JobOverrides{Body: []any{"raw", "list"}})

	if !reflect.DeepEqual(job.Body, []any{"raw", "list"}) {
		t.Errorf("non-mapping override should replace body outright, got %v", job.Body)
	}
}
