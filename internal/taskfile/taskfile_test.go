package taskfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	data := []byte(`
tasks:
  - id: build-1
    priority: 5
    payload: "compile module"
    duration_ms: 200
  - id: test-1
    priority: 3
    payload: "run tests"
    fail: true
  - payload: "no id"
`)

	tasks, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}

	if tasks[0].ID != "build-1" || tasks[0].Priority != 5 {
		t.Errorf("task 0 = %+v", tasks[0])
	}
	if tasks[0].Duration() != 200*time.Millisecond {
		t.Errorf("Duration = %v, want 200ms", tasks[0].Duration())
	}
	if !tasks[1].Fail {
		t.Error("task 1 should be marked failing")
	}
	if tasks[1].Duration() != DefaultDurationMs*time.Millisecond {
		t.Errorf("default Duration = %v", tasks[1].Duration())
	}
	if tasks[2].ID != "" {
		t.Errorf("task 2 id = %q, want empty", tasks[2].ID)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty file", ""},
		{"no tasks", "tasks: []"},
		{"duplicate ids", "tasks:\n  - id: a\n  - id: a"},
		{"malformed yaml", "tasks: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse should fail")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := "tasks:\n  - id: t1\n    priority: 1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Errorf("tasks = %+v", tasks)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}
