package version

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

type stubJobCounter struct {
	count int
	err   error
}

func (s stubJobCounter) CountJobsForMaster(context.Context, uuid.UUID) (int, error) {
	return s.count, s.err
}

type stubTaskCounter struct {
	count int
	err   error
}

func (s stubTaskCounter) CountTasksForMaster(context.Context, uuid.UUID) (int, error) {
	return s.count, s.err
}

func strptr(s string) *string   { return &s }
func intptr(i int) *int         { return &i }
func f64ptr(f float64) *float64 { return &f }
func boolptr(b bool) *bool      { return &b }

func baseJobMaster() *domain.JobMaster {
	return &domain.JobMaster{
		ID:              uuid.New(),
		Name:            "nightly-report",
		Method:          "POST",
		URL:             "https://api.internal/reports",
		Headers:         map[string]any{"X-Env": "prod"},
		TimeoutSec:      30,
		MaxAttempts:     3,
		BackoffStrategy: domain.BackoffExponential,
		BackoffSeconds:  2,
		Priority:        100,
		CurrentVersion:  1,
		IsActive:        true,
	}
}

func TestJobMasterChangedFields(t *testing.T) {
	tests := []struct {
		name   string
		update domain.JobMasterUpdate
		want   []string
	}{
		{
			name:   "empty update",
			update: domain.JobMasterUpdate{},
			want:   nil,
		},
		{
			name:   "non-critical fields only",
			update: domain.JobMasterUpdate{Name: strptr("renamed"), Priority: intptr(5), IsActive: boolptr(false)},
			want:   nil,
		},
		{
			name:   "same value is not a change",
			update: domain.JobMasterUpdate{Method: strptr("POST"), TimeoutSec: intptr(30)},
			want:   nil,
		},
		{
			name:   "url change",
			update: domain.JobMasterUpdate{URL: strptr("https://api.internal/v2/reports")},
			want:   []string{"url"},
		},
		{
			name: "several critical fields in declaration order",
			update: domain.JobMasterUpdate{
				Method:         strptr("PUT"),
				TimeoutSec:     intptr(60),
				BackoffSeconds: f64ptr(5),
			},
			want: []string{"method", "timeout_sec", "backoff_seconds"},
		},
		{
			name:   "headers replaced",
			update: domain.JobMasterUpdate{Headers: map[string]any{"X-Env": "staging"}, SetHeaders: true},
			want:   []string{"headers"},
		},
		{
			name:   "headers identical map is not a change",
			update: domain.JobMasterUpdate{Headers: map[string]any{"X-Env": "prod"}, SetHeaders: true},
			want:   nil,
		},
		{
			name:   "body set from nil",
			update: domain.JobMasterUpdate{Body: map[string]any{"mode": "full"}, SetBody: true},
			want:   []string{"body"},
		},
		{
			name:   "ttl set",
			update: domain.JobMasterUpdate{TTLSeconds: intptr(3600), SetTTLSeconds: true},
			want:   []string{"ttl_seconds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JobMasterChangedFields(baseJobMaster(), tt.update)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("JobMasterChangedFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskMasterChangedFields(t *testing.T) {
	master := &domain.TaskMaster{
		ID:         uuid.New(),
		Name:       "fetch-user",
		Method:     "GET",
		URL:        "https://api.internal/users",
		TimeoutSec: 15,
	}

	tests := []struct {
		name   string
		update domain.TaskMasterUpdate
		want   []string
	}{
		{
			name:   "name only",
			update: domain.TaskMasterUpdate{Name: strptr("fetch-account")},
			want:   nil,
		},
		{
			name:   "body template introduced",
			update: domain.TaskMasterUpdate{BodyTemplate: map[string]any{"id": "{{tasks[0].output_data.id}}"}, SetBodyTemplate: true},
			want:   []string{"body_template"},
		},
		{
			name:   "method and timeout",
			update: domain.TaskMasterUpdate{Method: strptr("POST"), TimeoutSec: intptr(20)},
			want:   []string{"method", "timeout_sec"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TaskMasterChangedFields(master, tt.update)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TaskMasterChangedFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManagerShouldVersionJobMaster(t *testing.T) {
	ctx := context.Background()
	upd := domain.JobMasterUpdate{URL: strptr("https://api.internal/v2/reports")}

	t.Run("no critical change", func(t *testing.T) {
		m := NewManager(stubJobCounter{count: 10}, stubTaskCounter{})
		d, err := m.ShouldVersionJobMaster(ctx, baseJobMaster(), domain.JobMasterUpdate{Name: strptr("x")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ShouldVersion {
			t.Error("expected ShouldVersion=false for non-critical update")
		}
		if len(d.ChangedFields) != 0 {
			t.Errorf("expected no changed fields, got %v", d.ChangedFields)
		}
	})

	t.Run("critical change without history", func(t *testing.T) {
		m := NewManager(stubJobCounter{count: 0}, stubTaskCounter{})
		d, err := m.ShouldVersionJobMaster(ctx, baseJobMaster(), upd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ShouldVersion {
			t.Error("expected ShouldVersion=false without execution history")
		}
		if !strings.Contains(d.Reason, "no execution history") {
			t.Errorf("unexpected reason: %q", d.Reason)
		}
		if !reflect.DeepEqual(d.ChangedFields, []string{"url"}) {
			t.Errorf("ChangedFields = %v, want [url]", d.ChangedFields)
		}
	})

	t.Run("critical change with history", func(t *testing.T) {
		m := NewManager(stubJobCounter{count: 7}, stubTaskCounter{})
		d, err := m.ShouldVersionJobMaster(ctx, baseJobMaster(), upd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.ShouldVersion {
			t.Error("expected ShouldVersion=true with execution history")
		}
		if !strings.Contains(d.Reason, "url") {
			t.Errorf("reason should name changed fields, got %q", d.Reason)
		}
	})
}

func TestManagerShouldVersionTaskMaster(t *testing.T) {
	ctx := context.Background()
	master := &domain.TaskMaster{ID: uuid.New(), Method: "GET", URL: "https://api.internal/users", TimeoutSec: 15}
	upd := domain.TaskMasterUpdate{TimeoutSec: intptr(45)}

	t.Run("with history", func(t *testing.T) {
		m := NewManager(stubJobCounter{}, stubTaskCounter{count: 3})
		d, err := m.ShouldVersionTaskMaster(ctx, master, upd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.ShouldVersion {
			t.Error("expected ShouldVersion=true")
		}
	})

	t.Run("without history", func(t *testing.T) {
		m := NewManager(stubJobCounter{}, stubTaskCounter{count: 0})
		d, err := m.ShouldVersionTaskMaster(ctx, master, upd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ShouldVersion {
			t.Error("expected ShouldVersion=false without history")
		}
	})
}

func TestCompareJobMasterVersions(t *testing.T) {
	prev := baseJobMaster().SnapshotVersion("initial", "tester")

	curr := baseJobMaster()
	curr.URL = "https://api.internal/v2/reports"
	curr.MaxAttempts = 5
	currSnap := curr.SnapshotVersion("bump", "tester")

	t.Run("first version has no diff", func(t *testing.T) {
		if got := CompareJobMasterVersions(nil, prev); got != nil {
			t.Errorf("expected nil diff for first version, got %v", got)
		}
	})

	t.Run("diff between versions", func(t *testing.T) {
		got := CompareJobMasterVersions(prev, currSnap)
		want := []string{"url", "max_attempts"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("CompareJobMasterVersions() = %v, want %v", got, want)
		}
	})
}

func TestApplyJobMasterUpdate(t *testing.T) {
	m := baseJobMaster()
	ApplyJobMasterUpdate(m, domain.JobMasterUpdate{
		Method:        strptr("PUT"),
		Headers:       nil,
		SetHeaders:    true,
		TimeoutSec:    intptr(60),
		TTLSeconds:    intptr(900),
		SetTTLSeconds: true,
		UpdatedBy:     "ops",
	})

	if m.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", m.Method)
	}
	if m.Headers != nil {
		t.Errorf("Headers should be reset to nil, got %v", m.Headers)
	}
	if m.TimeoutSec != 60 {
		t.Errorf("TimeoutSec = %d, want 60", m.TimeoutSec)
	}
	if m.TTLSeconds == nil || *m.TTLSeconds != 900 {
		t.Errorf("TTLSeconds = %v, want 900", m.TTLSeconds)
	}
	if m.UpdatedBy != "ops" {
		t.Errorf("UpdatedBy = %q, want ops", m.UpdatedBy)
	}
	// незатронутые поля сохраняются
	if m.URL != "https://api.internal/reports" {
		t.Errorf("URL unexpectedly changed: %q", m.URL)
	}
}
