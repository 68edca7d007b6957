package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func writeGradeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grades.yaml")
	if err := writeTestFile(path, content); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGradeCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "grade", "--help")
	if err != nil {
		t.Fatalf("grade --help failed: %v", err)
	}
	for _, sub := range []string{"list", "import", "clear"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestGradeImportCmd_Forms(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"grades key", `
grades:
  - subject: Math
    date: 12/01
    value: 15.5
  - subject: Physics
    value: 9
`},
		{"top-level list", `
- subject: Math
  date: 12/01
  value: 15.5
- subject: Physics
  value: 9
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := writeTestConfig(t, "")
			file := writeGradeFile(t, tt.file)

			out, err := runCmd(t, "", "grade", "import", file, "--config", cfgPath)
			if err != nil {
				t.Fatalf("grade import: %v", err)
			}
			if !strings.Contains(out, "2 grade(s) imported successfully") {
				t.Errorf("import output = %q", out)
			}

			out, err = runCmd(t, "", "grade", "list", "--config", cfgPath)
			if err != nil {
				t.Fatalf("grade list: %v", err)
			}
			for _, want := range []string{"SUBJECT", "Math", "12/01", "15.5", "Physics", "9"} {
				if !strings.Contains(out, want) {
					t.Errorf("list output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestGradeImportCmd_ReplacesExisting(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	first := writeGradeFile(t, "- {subject: History, value: 11}\n")
	second := writeGradeFile(t, "- {subject: Biology, value: 17}\n")

	for _, f := range []string{first, second} {
		if _, err := runCmd(t, "", "grade", "import", f, "--config", cfgPath); err != nil {
			t.Fatalf("grade import %s: %v", f, err)
		}
	}

	out, err := runCmd(t, "", "grade", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("grade list: %v", err)
	}
	if strings.Contains(out, "History") || !strings.Contains(out, "Biology") {
		t.Errorf("expected only the second import, got:\n%s", out)
	}
}

func TestGradeImportCmd_Errors(t *testing.T) {
	cfgPath := writeTestConfig(t, "")

	tests := []struct {
		name string
		file string
		want string
	}{
		{"out of range", "- {subject: Math, value: 25}\n", "grades[0].value"},
		{"empty", "grades: []\n", "at least one grade"},
		{"not yaml", "grades: [unclosed\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, "", "grade", "import", writeGradeFile(t, tt.file), "--config", cfgPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}

	if _, err := runCmd(t, "", "grade", "import", "/nonexistent/grades.yaml", "--config", cfgPath); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGradeClearCmd(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	file := writeGradeFile(t, "- {subject: Math, value: 12}\n- {subject: Art, value: 18}\n")
	if _, err := runCmd(t, "", "grade", "import", file, "--config", cfgPath); err != nil {
		t.Fatalf("grade import: %v", err)
	}

	if _, err := runCmd(t, "", "grade", "clear", "--config", cfgPath); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("clear without --yes: err = %v", err)
	}

	out, err := runCmd(t, "", "grade", "clear", "--yes", "--config", cfgPath)
	if err != nil {
		t.Fatalf("grade clear: %v", err)
	}
	if !strings.Contains(out, "2 grade(s) deleted") {
		t.Errorf("clear output = %q", out)
	}

	out, err = runCmd(t, "", "grade", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("grade list: %v", err)
	}
	if !strings.Contains(out, "No grades found.") {
		t.Errorf("expected empty list, got: %s", out)
	}
}
