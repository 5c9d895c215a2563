// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

const (
	keyFastStart = "faststart:history"
	keyExport    = "export:latest"
)

// BadgerStore persists diagnostic state in an embedded badger database.
// Values are JSON under fixed keys; the dataset is tiny, so no iteration or
// TTL handling is needed.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Backend() string { return "badger" }

func (s *BadgerStore) SaveFastStart(_ context.Context, samples []faststart.Sample) error {
	return s.put(keyFastStart, samples)
}

func (s *BadgerStore) LoadFastStart(_ context.Context) ([]faststart.Sample, error) {
	var out []faststart.Sample
	if err := s.get(keyFastStart, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) SaveExport(_ context.Context, doc *snapshot.ExportDocument) error {
	return s.put(keyExport, doc)
}

func (s *BadgerStore) LoadExport(_ context.Context) (*snapshot.ExportDocument, error) {
	var out snapshot.ExportDocument
	if err := s.get(keyExport, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) put(key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}

func (s *BadgerStore) get(key string, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

var _ Store = (*BadgerStore)(nil)
