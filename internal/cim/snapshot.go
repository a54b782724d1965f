package cim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"smiscope/internal/domain"
)

// Snapshot holds the result of every class query of one collection pass.
// It is the synchronization point between data collection and resolution, and
// doubles as a QueryProvider for offline replay.
type Snapshot struct {
	Target      string                              `yaml:"target,omitempty" json:"target,omitempty"`
	Profile     string                              `yaml:"profile,omitempty" json:"profile,omitempty"`
	CollectedAt time.Time                           `yaml:"collected_at" json:"collected_at"`
	Classes     map[string][]domain.RawEntityRecord `yaml:"classes" json:"classes"`
	// Failures maps a class to the error its query failed with
	Failures map[string]string `yaml:"failures,omitempty" json:"failures,omitempty"`
	// Unsupported lists classes the target does not implement
	Unsupported []string `yaml:"unsupported,omitempty" json:"unsupported,omitempty"`
}

// NewSnapshot creates an empty snapshot for a target
func NewSnapshot(target string) *Snapshot {
	return &Snapshot{
		Target:      target,
		CollectedAt: time.Now().UTC(),
		Classes:     make(map[string][]domain.RawEntityRecord),
		Failures:    make(map[string]string),
	}
}

// Add records the outcome of one query
func (s *Snapshot) Add(result QueryResult) {
	if s.Classes == nil {
		s.Classes = make(map[string][]domain.RawEntityRecord)
	}
	switch {
	case result.Unsupported():
		s.Unsupported = append(s.Unsupported, result.Class)
	case result.Failed():
		if s.Failures == nil {
			s.Failures = make(map[string]string)
		}
		s.Failures[result.Class] = result.Err.Error()
	default:
		s.Classes[result.Class] = append(s.Classes[result.Class], result.Records...)
	}
}

// Records returns the instances collected for a class; nil when none
func (s *Snapshot) Records(className string) []domain.RawEntityRecord {
	if s == nil || className == "" {
		return nil
	}
	return s.Classes[className]
}

// QueryCount returns how many classes were queried
func (s *Snapshot) QueryCount() int {
	return len(s.Classes) + len(s.Failures) + len(s.Unsupported)
}

// FailureCount returns how many queries failed
func (s *Snapshot) FailureCount() int {
	return len(s.Failures)
}

// ClassNames returns the sorted names of classes with collected records
func (s *Snapshot) ClassNames() []string {
	names := make([]string, 0, len(s.Classes))
	for name := range s.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query replays the snapshot: failed classes fail again, classes never
// collected are unsupported.
func (s *Snapshot) Query(ctx context.Context, className string) ([]domain.RawEntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg, ok := s.Failures[className]; ok {
		return nil, errors.New(msg)
	}
	records, ok := s.Classes[className]
	if !ok {
		return nil, fmt.Errorf("%s: %w", className, ErrClassNotSupported)
	}
	return records, nil
}

// WriteSnapshot encodes a snapshot as YAML
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

// ReadSnapshot decodes a YAML snapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Classes == nil {
		s.Classes = make(map[string][]domain.RawEntityRecord)
	}
	for class, records := range s.Classes {
		for i := range records {
			if records[i].Class == "" {
				records[i].Class = class
			}
		}
	}
	return &s, nil
}

// SaveSnapshot writes a snapshot to path
func SaveSnapshot(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := WriteSnapshot(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot reads a snapshot from path
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
