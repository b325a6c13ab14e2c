package research

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// InstructionFileFormat names the per-proposition instruction file.
	InstructionFileFormat = "ballot_research_instructions_p%d.txt"

	// TargetTemplateFile is appended to every proposition instruction.
	TargetTemplateFile = "template_target_research.txt"

	// TargetPlaceholder is replaced by the research target in the template.
	TargetPlaceholder = "{TARGET}"
)

// ErrEmptyTarget is returned by BuildTasks for a blank target name.
var ErrEmptyTarget = errors.New("research target must not be empty")

// Task is one research request sent to a Generator.
type Task struct {
	// Name identifies the task in logs, e.g. "p1-wikipedia".
	Name string

	// Proposition is the 1-based ballot proposition number.
	Proposition int

	// Target is the source the research should focus on, e.g. "Wikipedia".
	Target string

	// Instruction is the system instruction for the model.
	Instruction string
}

// InstructionFileName returns the instruction file name for proposition n.
func InstructionFileName(n int) string {
	return fmt.Sprintf(InstructionFileFormat, n)
}

// LoadInstruction reads the instruction file name from dir.
func LoadInstruction(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to load instruction %s: %w", name, err)
	}
	return string(data), nil
}

// BuildTasks builds one Task per proposition and target. Each instruction is
// the proposition's instruction file followed by the target template with
// every {TARGET} replaced. Tasks are ordered by proposition, then target.
func BuildTasks(dir string, propositions []int, targets []string) ([]Task, error) {
	template, err := LoadInstruction(dir, TargetTemplateFile)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(propositions)*len(targets))
	for _, p := range propositions {
		base, err := LoadInstruction(dir, InstructionFileName(p))
		if err != nil {
			return nil, err
		}

		for _, target := range targets {
			if strings.TrimSpace(target) == "" {
				return nil, ErrEmptyTarget
			}
			tasks = append(tasks, Task{
				Name:        fmt.Sprintf("p%d-%s", p, strings.ToLower(strings.ReplaceAll(target, " ", "-"))),
				Proposition: p,
				Target:      target,
				Instruction: base + strings.ReplaceAll(template, TargetPlaceholder, target),
			})
		}
	}

	return tasks, nil
}
