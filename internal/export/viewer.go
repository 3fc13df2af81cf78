// Package export publishes matched jobs outside the store: a data.js file
// for the static HTML viewer and an optional spreadsheet.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// ViewerFile is written next to the store files
const ViewerFile = "data.js"

// MatchLister returns every stored match
type MatchLister interface {
	Matches() ([]domain.MatchedJob, error)
}

// Viewer regenerates data.js from the full match list
type Viewer struct {
	matches MatchLister
	path    string
	now     func() time.Time
}

func NewViewer(matches MatchLister, dataDir string) *Viewer {
	return &Viewer{
		matches: matches,
		path:    filepath.Join(dataDir, ViewerFile),
		now:     time.Now,
	}
}

func (v *Viewer) Name() string {
	return "viewer"
}

// Publish ignores the delta and rewrites the whole file
func (v *Viewer) Publish(_ context.Context, _ []domain.MatchedJob) error {
	return v.Write()
}

// Write renders window.JOBS_DATA and replaces the file
func (v *Viewer) Write() error {
	jobs, err := v.matches.Matches()
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []domain.MatchedJob{}
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode viewer data: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("// Auto-generated by job-discovery\n")
	fmt.Fprintf(&buf, "// Updated: %s\n", v.now().UTC().Format(time.RFC3339))
	buf.WriteString("window.JOBS_DATA = ")
	buf.Write(data)
	buf.WriteString(";\n")

	tmp, err := os.CreateTemp(filepath.Dir(v.path), ViewerFile+".*")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("export: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("export: %w", err)
	}
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
