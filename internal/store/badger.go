// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	latestKeyPrefix  = "report:latest:"
	historyKeyPrefix = "report:history:"
)

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory.
	InMemory bool
	// Retention is the TTL of history entries. Zero keeps them forever.
	Retention time.Duration
	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// BadgerStore implements ReportStore on BadgerDB.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	ownsDB    bool
}

// OpenBadger opens a BadgerDB database and wraps it in a store that closes
// the database on Close.
func OpenBadger(cfg BadgerOptions) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	s := NewBadgerStore(db, cfg.Retention)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore wraps an open database. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	return &BadgerStore{db: db, retention: retention}
}

func latestKey(configID string) []byte {
	return []byte(latestKeyPrefix + configID)
}

func historyPrefix(configID string) []byte {
	return []byte(historyKeyPrefix + configID + ":")
}

// historyKey zero-pads the start time so keys sort chronologically.
func historyKey(configID string, fromMillis int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", historyKeyPrefix, configID, fromMillis))
}

// Write implements ReportStore.
func (s *BadgerStore) Write(ctx context.Context, r models.Report) error {
	err := s.write(ctx, r)
	metrics.RecordReportWrite("badger", err)
	return err
}

func (s *BadgerStore) write(ctx context.Context, r models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		current, found, err := getReport(txn, latestKey(r.ConfigID))
		if err != nil {
			return err
		}
		if found && !supersedes(current, r) {
			return nil
		}
		if err := txn.Set(latestKey(r.ConfigID), data); err != nil {
			return fmt.Errorf("set latest report: %w", err)
		}
		if r.InProgress() {
			return nil
		}

		entry := badger.NewEntry(historyKey(r.ConfigID, r.Trigger.From), data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set report history: %w", err)
		}
		return nil
	})
}

// getReport decodes the report stored under key.
func getReport(txn *badger.Txn, key []byte) (models.Report, bool, error) {
	var r models.Report
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return r, false, nil
	}
	if err != nil {
		return r, false, fmt.Errorf("get report: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return r, false, fmt.Errorf("decode report: %w", err)
	}
	return r, true, nil
}

// Latest implements ReportStore.
func (s *BadgerStore) Latest(ctx context.Context, configID string) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r models.Report
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(configID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// History implements ReportStore.
func (s *BadgerStore) History(ctx context.Context, configID string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var out []models.Report
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = historyPrefix(configID)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key not greater than the seek key.
		seek := append(historyPrefix(configID), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r models.Report
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode report history: %w", err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements ReportStore.
func (s *BadgerStore) Delete(ctx context.Context, configID string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = historyPrefix(configID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list report history: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(latestKey(configID)); err != nil {
			return fmt.Errorf("delete latest report: %w", err)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete report history: %w", err)
			}
		}
		return nil
	})
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) RunGC() error {
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close implements ReportStore.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

var _ ReportStore = (*BadgerStore)(nil)
