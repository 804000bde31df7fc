// Copyright 2025 Fluxpoint Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database provides persistent storage for the settlement engine.
// Structured records (campaigns, escrows, contributions, verifier keys,
// balances) live in a sqlite metadata store, while the append-only audit
// log lives in a badger blob store. Both are coordinated through a single
// Txn wrapper so each public engine operation commits or rolls back as a
// unit.
package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fluxpoint-io/corral/database/models"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Logger  *slog.Logger
	DataDir string
}

type Database struct {
	logger   *slog.Logger
	metadata *gorm.DB
	blob     *badger.DB
	dataDir  string
	auditMu  sync.Mutex
	auditSeq uint64
}

// New creates a new database instance. An empty DataDir selects in-memory
// storage for both stores.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs. We do this so we don't have to
		// add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var metadataDsn string
	badgerOpts := badger.DefaultOptions("").
		WithLogger(newBadgerLogger(logger))
	if cfg.DataDir == "" {
		metadataDsn = "file::memory:?cache=shared"
		badgerOpts = badgerOpts.WithInMemory(true)
	} else {
		metadataDsn = filepath.Join(cfg.DataDir, "metadata.sqlite")
		badgerOpts = badgerOpts.WithDir(filepath.Join(cfg.DataDir, "audit")).
			WithValueDir(filepath.Join(cfg.DataDir, "audit"))
	}
	metadataDb, err := gorm.Open(
		sqlite.Open(metadataDsn),
		&gorm.Config{
			Logger: gormlogger.Discard,
			// Surface unique-index violations as gorm.ErrDuplicatedKey so
			// callers can map them onto domain sentinels
			TranslateError: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	blobDb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	db := &Database{
		logger:   logger,
		metadata: metadataDb,
		blob:     blobDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.init(); err != nil {
		return nil, err
	}
	return db, nil
}

func (d *Database) init() error {
	if err := d.metadata.AutoMigrate(models.MigrateModels...); err != nil {
		return fmt.Errorf("failed to migrate metadata store: %w", err)
	}
	seq, err := d.lastAuditSequence()
	if err != nil {
		return fmt.Errorf("failed to recover audit sequence: %w", err)
	}
	d.auditSeq = seq
	return nil
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() *badger.DB {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if sqlDb, dbErr := d.metadata.DB(); dbErr == nil {
		err = errors.Join(err, sqlDb.Close())
	}
	err = errors.Join(err, d.blob.Close())
	return err
}

// badgerLogger adapts badger's logging interface onto slog
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger.With("component", "blobstore")}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Info(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(fmt.Sprintf(format, args...))
}
