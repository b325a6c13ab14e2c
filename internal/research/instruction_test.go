package research

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeInstructions creates instruction files for propositions 1 and 2.
func writeInstructions(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		InstructionFileName(1): "Research proposition 1.\n",
		InstructionFileName(2): "Research proposition 2.\n",
		TargetTemplateFile:     "Focus on {TARGET}. Cite {TARGET} pages.",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestInstructionFileName(t *testing.T) {
	t.Parallel()

	if got := InstructionFileName(3); got != "ballot_research_instructions_p3.txt" {
		t.Errorf("InstructionFileName(3) = %q", got)
	}
}

func TestLoadInstruction(t *testing.T) {
	t.Parallel()

	dir := writeInstructions(t)

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		got, err := LoadInstruction(dir, InstructionFileName(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Research proposition 1.\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadInstruction(dir, "missing.txt")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})
}

func TestBuildTasks(t *testing.T) {
	t.Parallel()

	dir := writeInstructions(t)

	t.Run("one task per proposition and target", func(t *testing.T) {
		t.Parallel()

		tasks, err := BuildTasks(dir, []int{1, 2}, []string{"Wikipedia", "NYC Votes"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks) != 4 {
			t.Fatalf("expected 4 tasks, got %d", len(tasks))
		}

		first := tasks[0]
		if first.Name != "p1-wikipedia" || first.Proposition != 1 || first.Target != "Wikipedia" {
			t.Errorf("unexpected first task: %+v", first)
		}
		want := "Research proposition 1.\nFocus on Wikipedia. Cite Wikipedia pages."
		if first.Instruction != want {
			t.Errorf("Instruction = %q, want %q", first.Instruction, want)
		}

		last := tasks[3]
		if last.Name != "p2-nyc-votes" || last.Proposition != 2 {
			t.Errorf("unexpected last task: %+v", last)
		}
	})

	t.Run("missing proposition file", func(t *testing.T) {
		t.Parallel()

		_, err := BuildTasks(dir, []int{9}, []string{"Wikipedia"})
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("missing template", func(t *testing.T) {
		t.Parallel()

		_, err := BuildTasks(t.TempDir(), []int{1}, []string{"Wikipedia"})
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("blank target", func(t *testing.T) {
		t.Parallel()

		_, err := BuildTasks(dir, []int{1}, []string{"  "})
		if !errors.Is(err, ErrEmptyTarget) {
			t.Errorf("expected ErrEmptyTarget, got %v", err)
		}
	})
}
