package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ballotresearch/internal/model"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one run in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResolutions(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs a table of runs.
func (w *MarkdownWriter) WriteHistory(runs []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		status := "✅"
		if !run.Succeeded() {
			status = "❌ " + truncateString(run.Error, 40)
		} else if run.FailedCount > 0 {
			status = "⚠️"
		}
		rows[i] = []string{
			strconv.FormatInt(run.ID, 10),
			run.StartedAt.Local().Format(timeLayout),
			string(run.Source),
			strconv.Itoa(run.LinkCount),
			strconv.Itoa(run.ResolvedCount),
			strconv.Itoa(run.FailedCount),
			status,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Source", "Links", "Resolved", "Unresolved", "Status"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Redirect Resolution Report")
	md.PlainText("")

	rows := [][]string{
		{"Started", report.StartedAt.Local().Format(timeLayout)},
		{"Duration", report.Duration.String()},
		{"Source", string(report.Source)},
		{"Text Digest (SHA3-256)", "`" + report.TextDigest + "`"},
		{"Status", w.statusText(report)},
	}
	if report.ID != 0 {
		rows = append([][]string{{"Run", "#" + strconv.FormatInt(report.ID, 10)}}, rows...)
	}
	if report.InputName != "" {
		rows = append(rows, []string{"Input", "`" + report.InputName + "`"})
	}
	if report.ResolvedPath != "" {
		rows = append(rows, []string{"Resolved Output", "`" + report.ResolvedPath + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(report *model.RunReport) string {
	switch {
	case !report.Succeeded():
		return "❌ " + runStatus(report)
	case report.FailedCount > 0:
		return "⚠️ " + runStatus(report)
	default:
		return "✅ " + runStatus(report)
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{statusLabel(model.StatusResolved), strconv.Itoa(report.ResolvedCount)},
			{statusLabel(model.StatusUnresolved), strconv.Itoa(report.FailedCount)},
			{"**Total**", "**" + strconv.Itoa(report.LinkCount) + "**"},
		},
	})
	md.PlainText("")

	if report.LinkCount > 0 {
		w.writePieChart(md, report)
	}

	switch {
	case !report.Succeeded():
		md.Cautionf("The run failed: %s", report.Error)
	case report.FailedCount > 0:
		md.Warningf(
			"%d of %d redirect link(s) could not be resolved and were left unchanged.",
			report.FailedCount, report.LinkCount,
		)
	case report.LinkCount == 0:
		md.Note("No redirect links were found. The output is identical to the input.")
	default:
		md.Tip("Every redirect link was resolved.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resolution Outcome"),
		piechart.WithShowData(true),
	)

	if report.ResolvedCount > 0 {
		chart.LabelAndIntValue(statusLabel(model.StatusResolved), uint64(report.ResolvedCount))
	}
	if report.FailedCount > 0 {
		chart.LabelAndIntValue(statusLabel(model.StatusUnresolved), uint64(report.FailedCount))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResolutions(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Resolutions) == 0 {
		return
	}

	md.H2("Links")
	md.PlainText("")

	rows := make([][]string, len(report.Resolutions))
	for i, rec := range report.Resolutions {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			statusLabel(rec.Status),
			"`" + rec.Link + "`",
			rec.Destination,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Status", "Redirect Link", "Destination"},
		Rows:   rows,
	})
	md.PlainText("")

	for i, rec := range report.Failures() {
		if rec.Error != "" {
			md.Details("Unresolved link "+strconv.Itoa(i+1), truncateString(rec.Error, 200))
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by ballotresearch*")
}
