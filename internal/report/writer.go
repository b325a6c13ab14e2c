package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/ballotresearch/internal/model"
)

// Writer renders run reports.
type Writer interface {
	// Write renders one run, resolutions included.
	Write(report *model.RunReport) (int, error)

	// WriteHistory renders a list of runs as a summary.
	WriteHistory(runs []*model.RunReport) (int, error)
}

// MultiWriter writes to several Writers in order and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the report with every writer.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory renders the run list with every writer.
func (m *MultiWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every timestamp shown to humans.
const timeLayout = "2006-01-02 15:04:05 MST"

var titleCaser = cases.Title(language.English)

// statusLabel returns the title-cased status name, e.g. "Resolved".
func statusLabel(s model.Status) string {
	return titleCaser.String(s.String())
}

// runStatus summarises the outcome of a run in a few words.
func runStatus(report *model.RunReport) string {
	switch {
	case !report.Succeeded():
		return "Error - " + report.Error
	case report.LinkCount == 0:
		return "Complete (no redirect links)"
	case report.FailedCount > 0:
		return "Complete (partial)"
	default:
		return "Complete"
	}
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
