package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/report"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history [run-id]" {
		t.Errorf("expected use 'history [run-id]', got %q", cmd.Use)
	}

	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("expected limit flag")
	}
	if flag.DefValue != strconv.Itoa(defaultHistoryLimit) {
		t.Errorf("expected default %d, got %q", defaultHistoryLimit, flag.DefValue)
	}

	for _, name := range []string{"link", "json", "markdown", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestHistoryCmd records runs with resolve and reads them back.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	rs := newRedirectServer(t)
	dbDir := filepath.Join(t.TempDir(), "db")
	outDir := t.TempDir()

	runs := []string{
		rs.link("first") + " " + rs.link("broken"),
		rs.link("second"),
	}
	for _, text := range runs {
		args := []string{"resolve", "-c", emptyConfig(t), "--db-dir", dbDir, "-d", outDir, "--pattern", rs.pattern()}
		if _, stderr, err := executeCmd(t, text, args...); err != nil {
			t.Fatalf("resolve failed: %v\n%s", err, stderr)
		}
	}

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var listed []*model.RunReport
		if err := json.Unmarshal([]byte(stdout), &listed); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(listed))
		}
		if listed[0].LinkCount != 1 || listed[1].LinkCount != 2 {
			t.Errorf("unexpected order or counts: %d, %d", listed[0].LinkCount, listed[1].LinkCount)
		}
		if listed[1].FailedCount != 1 {
			t.Errorf("expected the broken link to be counted as failed, got %d", listed[1].FailedCount)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "--json", "-l", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var listed []*model.RunReport
		if err := json.Unmarshal([]byte(stdout), &listed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(listed) != 1 {
			t.Errorf("expected 1 run, got %d", len(listed))
		}
	})

	t.Run("text listing", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "RESOLVED") || !strings.Contains(stdout, "stdin") {
			t.Errorf("unexpected listing: %q", stdout)
		}
	})

	t.Run("shows one run", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var listed []*model.RunReport
		if err := json.Unmarshal([]byte(stdout), &listed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		oldest := listed[len(listed)-1]

		stdout, _, err = executeCmd(t, "", "history", "--db-dir", dbDir, "--json", strconv.FormatInt(oldest.ID, 10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var jr report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &jr); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if len(jr.Report.Resolutions) != 2 {
			t.Fatalf("expected 2 resolutions, got %d", len(jr.Report.Resolutions))
		}
		if jr.Report.Resolutions[0].Destination != rs.final("first") {
			t.Errorf("destination = %q, want %q", jr.Report.Resolutions[0].Destination, rs.final("first"))
		}
		if jr.Report.Resolutions[1].Status != model.StatusUnresolved {
			t.Errorf("expected broken link to be unresolved, got %v", jr.Report.Resolutions[1].Status)
		}
	})

	t.Run("looks up a link", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "--link", rs.link("second"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(stdout) != rs.final("second") {
			t.Errorf("stdout = %q, want %q", stdout, rs.final("second"))
		}
	})

	t.Run("unresolved link is not found", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "--json", "--link", rs.link("broken"))
		if !errors.Is(err, errLinkNotFound) {
			t.Errorf("expected errLinkNotFound, got %v", err)
		}

		var lookup linkLookup
		if err := json.Unmarshal([]byte(stdout), &lookup); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if lookup.Found || lookup.Link != rs.link("broken") {
			t.Errorf("unexpected lookup: %+v", lookup)
		}
	})

	t.Run("unknown run ID", func(t *testing.T) {
		t.Parallel()

		if _, _, err := executeCmd(t, "", "history", "--db-dir", dbDir, "999"); err == nil {
			t.Error("expected error for unknown run")
		}
	})
}

// TestHistoryCmdErrors tests argument and database errors.
func TestHistoryCmdErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing database", args: []string{"--db-dir", filepath.Join(t.TempDir(), "none")}},
		{name: "invalid run ID", args: []string{"--db-dir", t.TempDir(), "abc"}},
		{name: "conflicting formats", args: []string{"--db-dir", t.TempDir(), "--json", "--markdown"}},
		{name: "link with run ID", args: []string{"--db-dir", t.TempDir(), "--link", "https://example.com", "1"}},
		{name: "too many arguments", args: []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"history"}, tt.args...)
			if _, _, err := executeCmd(t, "", args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
