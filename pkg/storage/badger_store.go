// Package storage persists scan reports between runs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/models"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

const (
	reportKeyPrefix = "report:"    // Prefix for report keys in DB
	reportsDBDir    = "reports_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements ReportStore using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64
}

var _ ReportStore = (*BadgerStore)(nil)

// NewBadgerStore opens the report database under stateDir. With reset, stored
// reports are removed first.
func NewBadgerStore(stateDir string, reset bool, logger *logrus.Entry) (*BadgerStore, error) {
	logger = log.Component(logger, "storage")
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, reportsDBDir)
	if reset {
		logger.Warnf("Reset requested. REMOVING existing report database: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing report database %s: %v", dbPath, err)
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	store.db = db

	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count stored reports: %v", err)
	}
	store.keyCount.Store(int64(count))

	logger.Debugf("Report database at %s opened with %d reports", dbPath, count)
	return store, nil
}

func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(reportKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func reportKey(fingerprint, digest string) []byte {
	return []byte(reportKeyPrefix + fingerprint + ":" + digest)
}

const maxConflictRetries = 10

// dbUpdate retries db.Update on transaction conflicts between concurrent workers
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// GetReport implements ReportStore. An undecodable value is treated as not stored.
func (s *BadgerStore) GetReport(fingerprint, digest string) (*models.Report, bool, error) {
	key := reportKey(fingerprint, digest)
	var report *models.Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, key, err)
		}
		return item.Value(func(val []byte) error {
			var decoded models.Report
			if err := json.Unmarshal(val, &decoded); err != nil {
				s.log.Warnf("Failed to unmarshal report for key '%s': %v. Ignoring it.", key, err)
				return nil
			}
			report = &decoded
			return nil
		})
	})
	if err != nil {
		s.log.Errorf("DB View error in GetReport for key '%s': %v", key, err)
		return nil, false, err
	}
	return report, report != nil, nil
}

// PutReport implements ReportStore
func (s *BadgerStore) PutReport(fingerprint string, report models.Report) error {
	if report.SHA256 == "" {
		return fmt.Errorf("%w: report for %s has no digest", utils.ErrDatabase, report.Source)
	}
	key := reportKey(fingerprint, report.SHA256)

	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal report for key '%s': %w", utils.ErrParsing, key, err)
	}

	isNew := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		isNew = false
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			isNew = true
		}
		return txn.SetEntry(badger.NewEntry(key, value))
	})
	if err != nil {
		return fmt.Errorf("%w: failed storing report for key '%s': %w", utils.ErrDatabase, key, err)
	}
	if isNew {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Stored report for key '%s' (%d URLs)", key, report.Count)
	return nil
}

// Count implements ReportStore
func (s *BadgerStore) Count() int {
	return int(s.keyCount.Load())
}

// RunGC runs BadgerDB's value log garbage collection until ctx is done
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db.IsClosed() {
				continue
			}
			var err error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// Close implements ReportStore
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing report DB: %v", err)
		return err
	}
	return nil
}
