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

package database

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"gorm.io/gorm"
)

// Txn is a wrapper that coordinates both metadata and blob transactions.
// Metadata and blob are first-class siblings, not nested. Audit records
// added via AppendAudit are buffered and only assigned their sequence
// numbers at commit time, which keeps audit ordering identical to commit
// ordering.
type Txn struct {
	db          *Database
	blobTxn     *badger.Txn
	metadataTxn *gorm.DB
	auditQueue  []AuditRecord
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:          db,
		blobTxn:     db.blob.NewTransaction(readWrite),
		metadataTxn: db.metadata.Begin(),
		readWrite:   readWrite,
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying metadata transaction handle
func (t *Txn) Metadata() *gorm.DB {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() *badger.Txn {
	return t.blobTxn
}

// Do executes the specified function in the context of the transaction. Any
// errors returned will result in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		return t.rollback()
	}
	// Hold the audit sequence lock across both commits so that assigned
	// sequence numbers match commit order
	t.db.auditMu.Lock()
	defer t.db.auditMu.Unlock()
	if err := t.flushAuditQueue(); err != nil {
		t.blobTxn.Discard()
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("failed to queue audit records: %w", err)
	}
	// Commit blob transaction first (so if this fails, metadata never
	// commits)
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("blob commit failed: %w", err)
	}
	// The audit records are durable once the blob commit lands, so the
	// sequence advances even if the metadata commit fails below. A later
	// transaction must never reuse these numbers.
	t.db.auditSeq += uint64(len(t.auditQueue))
	if err := t.metadataTxn.Commit().Error; err != nil {
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"error", err,
		)
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.blobTxn.Discard()
	err := t.metadataTxn.Rollback().Error
	t.finished = true
	return err
}
