package network

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/netharness/src/journal"
	"gopkg.in/yaml.v3"
)

// JournalFileName is the YAML dump of the journal written by
// PersistOnFailure.
const JournalFileName = "journal.yaml"

// PersistOnFailure copies the working directory of every spawned node into a
// new temporary directory, next to a dump of the journal. extra maps file
// names to contents written alongside. It returns the directory.
func (c *Controller) PersistOnFailure(extra map[string]string) (string, error) {
	dir, err := os.MkdirTemp("", "netharness_")
	if err != nil {
		return "", err
	}

	for _, h := range c.Nodes() {
		if h.WorkingDir() == "" {
			continue
		}
		if err := copyDir(h.WorkingDir(), filepath.Join(dir, h.Alias())); err != nil {
			return dir, fmt.Errorf("copying directory of node '%s': %w", h.Alias(), err)
		}
	}

	records, err := c.journal.Records()
	if err != nil {
		return dir, err
	}
	if err := writeJournal(filepath.Join(dir, JournalFileName), records); err != nil {
		return dir, err
	}

	for name, content := range extra {
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(name)), []byte(content), 0644); err != nil {
			return dir, err
		}
	}

	c.logger.WithField("dir", dir).Warn("Network state persisted")
	return dir, nil
}

type journalEntry struct {
	Index   int    `yaml:"index"`
	Kind    string `yaml:"kind"`
	Time    string `yaml:"time"`
	Subject string `yaml:"subject,omitempty"`
	Alias   string `yaml:"alias,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
	Detail  string `yaml:"detail,omitempty"`
}

func writeJournal(path string, records []journal.Record) error {
	entries := make([]journalEntry, len(records))
	for i, r := range records {
		entries[i] = journalEntry{
			Index:   r.Index,
			Kind:    string(r.Kind),
			Time:    r.Time.Format("2006-01-02T15:04:05.000Z07:00"),
			Subject: r.Subject,
			Alias:   r.Alias,
			Outcome: r.Outcome,
			Detail:  r.Detail,
		}
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// copyDir copies regular files and directories. Sockets and other special
// files are skipped.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
