package model

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/ballotresearch/internal/redirect"
)

// Source names where the text of a run came from.
type Source string

const (
	// SourceFile is text read from a file.
	SourceFile Source = "file"

	// SourceStdin is text piped into the process.
	SourceStdin Source = "stdin"

	// SourceResearch is text produced by a research run.
	SourceResearch Source = "research"
)

// RunReport describes one extract, resolve and substitute run.
type RunReport struct {
	// ID is the database row ID. Zero until the run is saved.
	ID int64 `json:"id,omitempty"`

	// UUID identifies the run across databases and report files.
	UUID string `json:"uuid"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Source    Source        `json:"source"`

	// InputName is the file path for SourceFile runs.
	InputName string `json:"input_name,omitempty"`

	// TextDigest is the hex SHA3-256 digest of the original text, used to
	// recognise repeated runs over the same input.
	TextDigest string `json:"text_digest"`

	LinkCount     int `json:"link_count"`
	ResolvedCount int `json:"resolved_count"`
	FailedCount   int `json:"failed_count"`

	Resolutions []ResolutionRecord `json:"resolutions,omitempty"`

	// OriginalPath and ResolvedPath are the artifact files, when written.
	OriginalPath string `json:"original_path,omitempty"`
	ResolvedPath string `json:"resolved_path,omitempty"`

	// Error holds the message of a failure that aborted the run.
	Error string `json:"error,omitempty"`
}

// ResolutionRecord is the stored outcome for one distinct link.
type ResolutionRecord struct {
	Link        string        `json:"link"`
	Destination string        `json:"destination"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// NewRunReport starts a report for a run over text from source.
func NewRunReport(source Source, startedAt time.Time) *RunReport {
	return &RunReport{
		UUID:      uuid.NewString(),
		StartedAt: startedAt,
		Source:    source,
	}
}

// Digest returns the hex SHA3-256 digest of text.
func Digest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Record copies the outcome of a Process call into the report.
func (r *RunReport) Record(result *redirect.Result) {
	r.TextDigest = Digest(result.Original)
	r.LinkCount = len(result.Links)
	r.ResolvedCount = 0
	r.FailedCount = 0
	r.Resolutions = make([]ResolutionRecord, 0, len(result.Resolutions))

	for _, res := range result.Resolutions {
		rec := ResolutionRecord{
			Link:        res.Link,
			Destination: res.Destination,
			Status:      StatusUnresolved,
			Elapsed:     res.Elapsed,
		}
		if res.Resolved() {
			rec.Status = StatusResolved
			r.ResolvedCount++
		} else {
			rec.Error = res.Err.Error()
			r.FailedCount++
		}
		r.Resolutions = append(r.Resolutions, rec)
	}
}

// Fail records err as the reason the run was aborted.
func (r *RunReport) Fail(err error) {
	if err != nil {
		r.Error = err.Error()
	}
}

// Finish stamps the run duration relative to StartedAt.
func (r *RunReport) Finish(now time.Time) {
	r.Duration = now.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without an aborting error.
func (r *RunReport) Succeeded() bool {
	return r.Error == ""
}

// Failures returns the records of links left unresolved.
func (r *RunReport) Failures() []ResolutionRecord {
	var out []ResolutionRecord
	for _, rec := range r.Resolutions {
		if rec.Status != StatusResolved {
			out = append(out, rec)
		}
	}
	return out
}
