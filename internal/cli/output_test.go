package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestOutput_PrintTableMode(t *testing.T) {
	var w, errW bytes.Buffer
	out := newOutput(false, &w, &errW)

	out.Print(
		[]string{"ID", "STATUS"},
		[][]string{{"j-1", "QUEUED"}, {"j-2", "SUCCEEDED"}},
		nil,
	)

	lines := strings.Split(strings.TrimRight(w.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header, dashes, 2 rows):\n%s", len(lines), w.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "--") {
		t.Errorf("separator line = %q", lines[1])
	}
	if !strings.Contains(lines[3], "SUCCEEDED") {
		t.Errorf("row line = %q", lines[3])
	}
	if errW.Len() != 0 {
		t.Errorf("table wrote to stderr: %q", errW.String())
	}
}

func TestOutput_PrintJSONMode(t *testing.T) {
	var w, errW bytes.Buffer
	out := newOutput(true, &w, &errW)

	out.Print([]string{"ID"}, [][]string{{"j-1"}}, map[string]string{"id": "j-1"})

	var decoded map[string]string
	if err := json.Unmarshal(w.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\n%s", err, w.String())
	}
	if decoded["id"] != "j-1" {
		t.Errorf("decoded = %v", decoded)
	}
	if strings.Contains(w.String(), "ID\t") {
		t.Error("table rendered in JSON mode")
	}
}

func TestOutput_MessagesGoToStderr(t *testing.T) {
	var w, errW bytes.Buffer
	out := newOutput(false, &w, &errW)

	out.Successf("Job submitted: %s", "j-1")
	out.Error("boom")

	if w.Len() != 0 {
		t.Errorf("messages leaked to stdout: %q", w.String())
	}
	if got := errW.String(); got != "Job submitted: j-1\nError: boom\n" {
		t.Errorf("stderr = %q", got)
	}
}
