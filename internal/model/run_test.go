package model

import (
	"errors"
	"testing"
	"time"

	"github.com/nao1215/ballotresearch/internal/redirect"
)

func TestDigest(t *testing.T) {
	t.Parallel()

	// SHA3-256 of the empty string.
	const emptyDigest = "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"

	if got := Digest(""); got != emptyDigest {
		t.Errorf("Digest(\"\") = %s, expected %s", got, emptyDigest)
	}
	if Digest("a") == Digest("b") {
		t.Error("expected different digests for different text")
	}
	if len(Digest("anything")) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(Digest("anything")))
	}
}

func TestRunReportRecord(t *testing.T) {
	t.Parallel()

	result := &redirect.Result{
		Original: "text with links",
		Links:    redirect.Links{"L1", "L2", "L3"},
		Resolutions: []redirect.Resolution{
			{Link: "L1", Destination: "https://a.example/", Elapsed: time.Millisecond},
			{Link: "L2", Destination: "L2", Err: errors.New("timeout")},
			{Link: "L3", Destination: "https://c.example/"},
		},
	}

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := NewRunReport(SourceStdin, started)
	report.Record(result)
	report.Finish(started.Add(2 * time.Second))

	if report.LinkCount != 3 {
		t.Errorf("LinkCount = %d, expected 3", report.LinkCount)
	}
	if report.ResolvedCount != 2 {
		t.Errorf("ResolvedCount = %d, expected 2", report.ResolvedCount)
	}
	if report.FailedCount != 1 {
		t.Errorf("FailedCount = %d, expected 1", report.FailedCount)
	}
	if report.TextDigest != Digest("text with links") {
		t.Errorf("unexpected digest %s", report.TextDigest)
	}
	if report.Duration != 2*time.Second {
		t.Errorf("Duration = %v, expected 2s", report.Duration)
	}
	if !report.Succeeded() {
		t.Error("expected run to succeed")
	}

	failures := report.Failures()
	if len(failures) != 1 || failures[0].Link != "L2" || failures[0].Error != "timeout" {
		t.Errorf("unexpected failures: %+v", failures)
	}
	if report.Resolutions[0].Status != StatusResolved || report.Resolutions[0].Elapsed != time.Millisecond {
		t.Errorf("unexpected first record: %+v", report.Resolutions[0])
	}
}

func TestRunReportRecordNoLinks(t *testing.T) {
	t.Parallel()

	report := NewRunReport(SourceFile, time.Now())
	report.Record(&redirect.Result{Original: "plain", Resolved: "plain"})

	if report.LinkCount != 0 || report.ResolvedCount != 0 || report.FailedCount != 0 {
		t.Errorf("expected zero counts, got %+v", report)
	}
	if report.TextDigest == "" {
		t.Error("expected digest even without links")
	}
}

func TestRunReportFail(t *testing.T) {
	t.Parallel()

	report := NewRunReport(SourceResearch, time.Now())
	report.Fail(nil)
	if !report.Succeeded() {
		t.Error("nil error must not fail the run")
	}

	report.Fail(errors.New("model quota exceeded"))
	if report.Succeeded() {
		t.Error("expected run to be failed")
	}
	if report.Error != "model quota exceeded" {
		t.Errorf("Error = %q", report.Error)
	}
}

func TestNewRunReportUUID(t *testing.T) {
	t.Parallel()

	a := NewRunReport(SourceStdin, time.Now())
	b := NewRunReport(SourceStdin, time.Now())

	if len(a.UUID) != 36 {
		t.Errorf("expected a 36 character UUID, got %q", a.UUID)
	}
	if a.UUID == b.UUID {
		t.Errorf("expected distinct UUIDs, both were %q", a.UUID)
	}
}
