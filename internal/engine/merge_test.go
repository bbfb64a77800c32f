package engine

import (
	"reflect"
	"testing"
)

func TestMergeShallow(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]any
		override map[string]any
		expected map[string]any
	}{
		{
			name:     "override wins on collision",
			base:     map[string]any{"a": 1, "b": 2},
			override: map[string]any{"a": 10, "c": 3},
			expected: map[string]any{"a": 10, "b": 2, "c": 3},
		},
		{
			name:     "nil override passes base through",
			base:     map[string]any{"a": 1},
			override: nil,
			expected: map[string]any{"a": 1},
		},
		{
			name:     "nil base passes override through",
			base:     nil,
			override: map[string]any{"a": 1},
			expected: map[string]any{"a": 1},
		},
		{
			name:     "both nil",
			base:     nil,
			override: nil,
			expected: nil,
		},
		{
			name:     "both empty collapses to nil",
			base:     map[string]any{},
			override: map[string]any{},
			expected: nil,
		},
		{
			name: "shallow only: nested maps replaced, not merged",
			base: map[string]any{
				"user": map[string]any{"name": "alice", "age": 30},
			},
			override: map[string]any{
				"user": map[string]any{"age": 31},
			},
			expected: map[string]any{
				"user": map[string]any{"age": 31},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MergeShallow(tt.base, tt.override)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestMergeShallow_EmptyOverrideIsIdentity(t *testing.T) {
	base := map[string]any{"a": 1, "b": "x"}
	result := MergeShallow(base, map[string]any{})
	if !reflect.DeepEqual(result, base) {
		t.Errorf("merge with empty override should equal base, got %v", result)
	}
}

func TestMergeDeep(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]any
		override map[string]any
		expected map[string]any
	}{
		{
			name: "nested maps merged recursively",
			base: map[string]any{
				"user": map[string]any{"name": "alice", "age": 30},
			},
			override: map[string]any{
				"user": map[string]any{"age": 31},
			},
			expected: map[string]any{
				"user": map[string]any{"name": "alice", "age": 31},
			},
		},
		{
			name:     "arrays replaced, never concatenated",
			base:     map[string]any{"items": []any{1, 2}},
			override: map[string]any{"items": []any{3}},
			expected: map[string]any{"items": []any{3}},
		},
		{
			name:     "scalar replaces nested map",
			base:     map[string]any{"cfg": map[string]any{"x": 1}},
			override: map[string]any{"cfg": "off"},
			expected: map[string]any{"cfg": "off"},
		},
		{
			name:     "both nil",
			base:     nil,
			override: nil,
			expected: nil,
		},
		{
			name:     "nil base passes override through",
			base:     nil,
			override: map[string]any{"a": 1},
			expected: map[string]any{"a": 1},
		},
		{
			name: "deep merge at two levels",
			base: map[string]any{
				"a": map[string]any{
					"b": map[string]any{"c": 1, "d": 2},
				},
			},
			override: map[string]any{
				"a": map[string]any{
					"b": map[string]any{"d": 3},
					"e": 4,
				},
			},
			expected: map[string]any{
				"a": map[string]any{
					"b": map[string]any{"c": 1, "d": 3},
					"e": 4,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MergeDeep(tt.base, tt.override)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestMergeDeep_DoesNotMutateBase(t *testing.T) {
	base := map[string]any{"a": map[string]any{"x": 1}}
	MergeDeep(base, map[string]any{"a": map[string]any{"y": 2}})

	inner := base["a"].(map[string]any)
	if _, ok := inner["y"]; ok {
		t.Error("base map must not be mutated by merge")
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		base     []string
		override []string
		expected []string
	}{
		{
			name:     "union deduplicated and sorted",
			base:     []string{"b", "a"},
			override: []string{"a", "c"},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "nil override sorts base",
			base:     []string{"z", "a"},
			override: nil,
			expected: []string{"a", "z"},
		},
		{
			name:     "both nil",
			base:     nil,
			override: nil,
			expected: nil,
		},
		{
			name:     "both empty collapses to nil",
			base:     []string{},
			override: []string{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MergeTags(tt.base, tt.override)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
