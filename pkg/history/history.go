package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/obkit/obup/pkg/report"
)

var (
	bucketReports = []byte("reports")

	// ErrNotFound is returned when no archived run matches the given ID.
	ErrNotFound = errors.New("run not found")
)

// Store archives finished deployment reports for later audit. It holds no
// run state: a report is written once, after its run reached a terminal
// state, and never feeds control flow.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the report archive under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "obup.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketReports)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reports bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a finished report. Keys sort by start time so List
// returns runs in chronological order.
func (s *Store) Save(rep *report.DeploymentReport) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		data, err := json.Marshal(rep)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%s", rep.StartedAt.UTC().Format(time.RFC3339Nano), rep.RunID)
		return b.Put([]byte(key), data)
	})
}

// Get returns the archived report whose run ID equals or starts with id.
func (s *Store) Get(id string) (*report.DeploymentReport, error) {
	var found *report.DeploymentReport
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		return b.ForEach(func(k, v []byte) error {
			_, runID, ok := strings.Cut(string(k), "/")
			if !ok || !strings.HasPrefix(runID, id) {
				return nil
			}
			var rep report.DeploymentReport
			if err := json.Unmarshal(v, &rep); err != nil {
				return fmt.Errorf("failed to decode report %s: %w", runID, err)
			}
			found = &rep
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Entry is one line of the archive listing.
type Entry struct {
	RunID     string
	Cluster   string
	Status    report.Status
	StartedAt time.Time
}

// List returns all archived runs in chronological order.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		return b.ForEach(func(k, v []byte) error {
			var rep report.DeploymentReport
			if err := json.Unmarshal(v, &rep); err != nil {
				return fmt.Errorf("failed to decode report %s: %w", k, err)
			}
			entries = append(entries, Entry{
				RunID:     rep.RunID,
				Cluster:   rep.Cluster,
				Status:    rep.Status,
				StartedAt: rep.StartedAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
