package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/wanderlens/arsync/internal/storage/memory/export/v1"
)

// Export renders the current or last session in the v1 format.
func (b *Backend) Export() (v1.Export, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return v1.Export{}, ErrNoSession
	}
	return b.buildExport(), nil
}

func (b *Backend) buildExport() v1.Export {
	end := b.endTime
	if end.IsZero() {
		end = b.now()
	}
	return v1.Build(&v1.SessionData{
		Session:   *b.session,
		EndTime:   end,
		Markers:   b.markers,
		Sightings: b.sightings,
		Actions:   b.actions,
	})
}

// exportFileName builds <scene>_<timestamp>_<id>.json[.gz].
func (b *Backend) exportFileName() string {
	scene := b.session.Scene
	if scene == "" {
		scene = "session"
	}
	scene = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(scene)
	timestamp := b.session.StartTime.UTC().Format("20060102_150405")

	name := fmt.Sprintf("%s_%s_%s.json", scene, timestamp, b.session.ID)
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return name
}

// exportJSON writes the session data to a (optionally gzipped) JSON file.
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFileName())

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
