package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/ballotresearch/internal/model"
)

// SimpleWriter outputs plain-text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-link timings and error messages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-link timings and error messages.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeResolutions(&sb, report)
	w.writeArtifacts(&sb, report)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteHistory outputs one table row per run.
func (w *SimpleWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No runs recorded.\n")
	}

	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"ID", "Started", "Source", "Links", "Resolved", "Failed", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.StartedAt.Local().Format(timeLayout),
			run.Source,
			run.LinkCount,
			run.ResolvedCount,
			run.FailedCount,
			truncateString(run.Error, 40),
		})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	return w.output.Write(buf.Bytes())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    REDIRECT RESOLUTION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if report.ID != 0 {
		fmt.Fprintf(sb, "Run:        #%d\n", report.ID)
	}
	if report.UUID != "" {
		fmt.Fprintf(sb, "UUID:       %s\n", report.UUID)
	}
	fmt.Fprintf(sb, "Started:    %s\n", report.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(sb, "Duration:   %s\n", report.Duration.Round(time.Millisecond))
	source := string(report.Source)
	if report.InputName != "" {
		source += " (" + report.InputName + ")"
	}
	fmt.Fprintf(sb, "Source:     %s\n", source)
	fmt.Fprintf(sb, "Digest:     %s\n", report.TextDigest)
	fmt.Fprintf(sb, "Status:     %s\n\n", runStatus(report))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nSUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  LINKS:      %d\n", report.LinkCount)
	fmt.Fprintf(sb, "  RESOLVED:   %d\n", report.ResolvedCount)
	fmt.Fprintf(sb, "  UNRESOLVED: %d\n\n", report.FailedCount)
}

func (w *SimpleWriter) writeResolutions(sb *strings.Builder, report *model.RunReport) {
	if len(report.Resolutions) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nLINKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, rec := range report.Resolutions {
		indicator := "+"
		if rec.Status != model.StatusResolved {
			indicator = "!"
		}
		fmt.Fprintf(sb, "[%s] %s\n", indicator, rec.Link)
		fmt.Fprintf(sb, "    -> %s\n", rec.Destination)
		if w.verbose {
			fmt.Fprintf(sb, "    %s in %s\n", statusLabel(rec.Status), rec.Elapsed.Round(time.Millisecond))
			if rec.Error != "" {
				fmt.Fprintf(sb, "    Error: %s\n", rec.Error)
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, report *model.RunReport) {
	if report.OriginalPath == "" && report.ResolvedPath == "" {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nOUTPUT FILES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.OriginalPath != "" {
		fmt.Fprintf(sb, "  Original: %s\n", report.OriginalPath)
	}
	if report.ResolvedPath != "" {
		fmt.Fprintf(sb, "  Resolved: %s\n", report.ResolvedPath)
	}
	sb.WriteString("\n")
}
