package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/uxentio/books-pipeline/internal/quality"
	"gopkg.in/yaml.v3"
)

// RunConfig is the configuration section of a run history entry.
type RunConfig struct {
	Version      string `yaml:"version"`
	Policy       string `yaml:"policy"`
	ReuseB       bool   `yaml:"reuseb"`
	DeriveISBN13 bool   `yaml:"deriveisbn13"`
	LandingDir   string `yaml:"landingdir"`
	StandardDir  string `yaml:"standarddir"`
	Timestamp    string `yaml:"timestamp"`
}

// RunSummary is the outcome section of a run history entry.
type RunSummary struct {
	Status         string   `yaml:"status"`
	Error          string   `yaml:"error,omitempty"`
	Seconds        float64  `yaml:"seconds"`
	InputRecords   int      `yaml:"inputrecords"`
	Books          int      `yaml:"books"`
	SourceDetails  int      `yaml:"sourcedetails"`
	MatchRate      float64  `yaml:"matchrate,omitempty"`
	Warnings       int      `yaml:"warnings"`
	Errors         int      `yaml:"errors"`
	Artifacts      []string `yaml:"artifacts,omitempty"`
	ParseFailures  int      `yaml:"parsefailures"`
	DuplicateBooks int      `yaml:"duplicatebooks"`
}

// RunEntry is one file under the runs directory.
type RunEntry struct {
	RunID   string     `yaml:"runid"`
	Config  RunConfig  `yaml:"config"`
	Summary RunSummary `yaml:"summary"`
}

// SaveRun writes a compact history entry for report into dir, named after
// the run's start time.
func SaveRun(dir string, report *quality.Report, artifacts []string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create runs directory: %w", err)
	}

	timestamp := report.ExecutionDate.Format("2006-01-02_15-04-05")
	entry := RunEntry{
		RunID: report.RunID,
		Config: RunConfig{
			Version:      report.Pipeline.Version,
			Policy:       report.Pipeline.Policy,
			ReuseB:       report.Pipeline.ReuseB,
			DeriveISBN13: report.Pipeline.DeriveISBN13,
			LandingDir:   report.Pipeline.LandingDir,
			StandardDir:  report.Pipeline.StandardDir,
			Timestamp:    timestamp,
		},
		Summary: RunSummary{
			Status:    report.Summary.Status,
			Error:     report.Summary.Error,
			Seconds:   report.Summary.ExecutionTimeSeconds,
			Warnings:  len(report.Warnings),
			Errors:    len(report.Errors),
			Artifacts: artifacts,
		},
	}
	if d := report.Deduplication; d != nil {
		entry.Summary.InputRecords = d.InputRecords
		entry.Summary.Books = d.OutputRecords
		entry.Summary.DuplicateBooks = d.DuplicateBooks
		if d.Matching != nil {
			entry.Summary.MatchRate = d.Matching.MatchRate
		}
	}
	if rc := report.RecordCounts; rc != nil {
		entry.Summary.SourceDetails = rc.SourceDetailTotal
	}
	if n := report.Normalization; n != nil {
		for _, count := range n.ParseFailures {
			entry.Summary.ParseFailures += count
		}
	}

	data, err := yaml.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	// Several runs inside one second get a short run-id suffix.
	filename := filepath.Join(dir, timestamp+".yaml")
	if _, err := os.Stat(filename); err == nil {
		filename = filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", timestamp, shortID(report.RunID)))
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}

// LoadRuns reads every history entry in dir, oldest first.
func LoadRuns(dir string) ([]RunEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	sort.Strings(matches)

	entries := make([]RunEntry, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var entry RunEntry
		if err := yaml.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StartedAt parses the entry's timestamp.
func (e RunEntry) StartedAt() (time.Time, error) {
	return time.Parse("2006-01-02_15-04-05", e.Config.Timestamp)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
