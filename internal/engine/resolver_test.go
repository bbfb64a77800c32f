package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/jobqueue/internal/domain"
)

// makeTask создаёт task с заданными данными для тестов резолвера.
func makeTask(input, output any) *domain.Task {
	return &domain.Task{
		ID:         uuid.New(),
		JobID:      uuid.New(),
		InputData:  input,
		OutputData: output,
	}
}

func TestResolve_WholeStringReturnsTypedValue(t *testing.T) {
	tasks := []*domain.Task{
		makeTask(nil, map[string]any{
			"result":  "ok",
			"n":       float64(5),
			"flag":    true,
			"nested":  map[string]any{"deep": "value"},
			"listing": []any{"a", "b"},
		}),
	}

	tests := []struct {
		name     string
		template string
		expected any
	}{
		{
			name:     "string value",
			template: "{{tasks[0].output_data.result}}",
			expected: "ok",
		},
		{
			name:     "number keeps its type",
			template: "{{tasks[0].output_data.n}}",
			expected: float64(5),
		},
		{
			name:     "bool keeps its type",
			template: "{{tasks[0].output_data.flag}}",
			expected: true,
		},
		{
			name:     "mapping keeps its type",
			template: "{{tasks[0].output_data.nested}}",
			expected: map[string]any{"deep": "value"},
		},
		{
			name:     "no path returns whole bucket",
			template: "{{tasks[0].output_data}}",
			expected: map[string]any{
				"result":  "ok",
				"n":       float64(5),
				"flag":    true,
				"nested":  map[string]any{"deep": "value"},
				"listing": []any{"a", "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolveTemplate(tt.template, tasks)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestResolve_Interpolation(t *testing.T) {
	tasks := []*domain.Task{
		makeTask(
			map[string]any{"query": "golang"},
			map[string]any{"n": float64(5), "name": "alice"},
		),
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "number stringified inside text",
			template: "x={{tasks[0].output_data.n}}",
			expected: "x=5",
		},
		{
			name:     "two references in one string",
			template: "{{tasks[0].output_data.name}} searched {{tasks[0].input_data.query}}",
			expected: "alice searched golang",
		},
		{
			name:     "missing field interpolates as empty string",
			template: "v=[{{tasks[0].output_data.nope}}]",
			expected: "v=[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolveTemplate(tt.template, tasks)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %v", tt.expected, result)
			}
		})
	}
}

func TestResolve_NestedContainers(t *testing.T) {
	tasks := []*domain.Task{
		makeTask(nil, map[string]any{"id": float64(42)}),
	}

	template := map[string]any{
		"company_id": "{{tasks[0].output_data.id}}",
		"static":     "unchanged",
		"items": []any{
			"{{tasks[0].output_data.id}}",
			float64(7),
		},
	}

	result, err := ResolveTemplate(template, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]any{
		"company_id": float64(42),
		"static":     "unchanged",
		"items":      []any{float64(42), float64(7)},
	}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}

func TestResolve_Errors(t *testing.T) {
	tasks := []*domain.Task{
		makeTask(nil, map[string]any{"scalar": "text"}),
		makeTask(nil, nil),
	}

	t.Run("index out of range", func(t *testing.T) {
		_, err := ResolveTemplate("{{tasks[5].output_data.x}}", tasks)
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, ErrTaskIndexOutOfRange) {
			t.Errorf("expected ErrTaskIndexOutOfRange, got %v", err)
		}
		var resolveErr *ResolveError
		if !errors.As(err, &resolveErr) {
			t.Fatal("error should be *ResolveError")
		}
		if resolveErr.TaskIndex != 5 {
			t.Errorf("expected task index 5, got %d", resolveErr.TaskIndex)
		}
	})

	t.Run("index out of range on empty chain", func(t *testing.T) {
		_, err := ResolveTemplate("{{tasks[0].output_data}}", nil)
		if !errors.Is(err, ErrTaskIndexOutOfRange) {
			t.Fatalf("expected ErrTaskIndexOutOfRange, got %v", err)
		}
		if !strings.Contains(err.Error(), "task chain is empty") {
			t.Errorf("expected empty-chain detail, got %q", err.Error())
		}
		if strings.Contains(err.Error(), "0--1") {
			t.Errorf("range detail rendered for empty chain: %q", err.Error())
		}
	})

	t.Run("path through non-mapping", func(t *testing.T) {
		_, err := ResolveTemplate("{{tasks[0].output_data.scalar.deeper}}", tasks)
		if !errors.Is(err, ErrNonMappingTraversal) {
			t.Errorf("expected ErrNonMappingTraversal, got %v", err)
		}
	})

	t.Run("missing bucket resolves to nil", func(t *testing.T) {
		result, err := ResolveTemplate("{{tasks[1].output_data.x}}", tasks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("missing field resolves to nil", func(t *testing.T) {
		result, err := ResolveTemplate("{{tasks[0].output_data.absent}}", tasks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("error inside nested template propagates", func(t *testing.T) {
		template := map[string]any{"a": []any{"{{tasks[9].output_data}}"}}
		_, err := ResolveTemplate(template, tasks)
		if !errors.Is(err, ErrTaskIndexOutOfRange) {
			t.Errorf("expected ErrTaskIndexOutOfRange, got %v", err)
		}
	})
}

func TestHasTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		template any
		expected bool
	}{
		{
			name:     "plain string",
			template: "no variables here",
			expected: false,
		},
		{
			name:     "reference in string",
			template: "{{tasks[0].output_data.x}}",
			expected: true,
		},
		{
			name: "reference deep in mapping",
			template: map[string]any{
				"a": map[string]any{"b": []any{"{{tasks[1].input_data}}"}},
			},
			expected: true,
		},
		{
			name:     "static mapping",
			template: map[string]any{"a": float64(1), "b": "text"},
			expected: false,
		},
		{
			name:     "nil",
			template: nil,
			expected: false,
		},
		{
			name:     "malformed reference ignored",
			template: "{{tasks[x].output_data}}",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTemplateVariables(tt.template); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
