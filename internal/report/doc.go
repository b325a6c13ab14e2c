// Package report renders run reports and writes the output artifacts.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: JSON for other tools
//   - MarkdownWriter: GitHub-flavored Markdown for sharing
//
// WriteArtifacts writes the original and resolved texts next to each other
// so the two can be diffed.
package report
