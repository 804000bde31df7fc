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
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const auditKeyPrefix = "audit/"

// AuditRecord is a single externally-observable entry in the append-only
// audit log. Every escrow movement and contribution state change writes
// one. Sequence is assigned at commit time and matches commit order.
type AuditRecord struct {
	Sequence       uint64 `json:"sequence"`
	EntryID        string `json:"entryId"`
	Kind           string `json:"kind"`
	CampaignID     string `json:"campaignId,omitempty"`
	ContributionID string `json:"contributionId,omitempty"`
	Account        string `json:"account,omitempty"`
	Amount         uint64 `json:"amount,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

func auditKey(seq uint64) []byte {
	key := make([]byte, len(auditKeyPrefix)+8)
	copy(key, auditKeyPrefix)
	binary.BigEndian.PutUint64(key[len(auditKeyPrefix):], seq)
	return key
}

// AppendAudit buffers an audit record for write at transaction commit
func (t *Txn) AppendAudit(record AuditRecord) {
	t.auditQueue = append(t.auditQueue, record)
}

// flushAuditQueue assigns sequence numbers to buffered audit records and
// writes them into the blob transaction. Caller must hold db.auditMu.
func (t *Txn) flushAuditQueue() error {
	seq := t.db.auditSeq
	for i := range t.auditQueue {
		seq++
		t.auditQueue[i].Sequence = seq
		val, err := json.Marshal(&t.auditQueue[i])
		if err != nil {
			return fmt.Errorf("failed to marshal audit record: %w", err)
		}
		if err := t.blobTxn.Set(auditKey(seq), val); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	return nil
}

// lastAuditSequence finds the highest assigned audit sequence number by
// iterating the log in reverse
func (d *Database) lastAuditSequence() (uint64, error) {
	var seq uint64
	err := d.blob.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		// Seek to the last possible key in the audit keyspace
		it.Seek(auditKey(^uint64(0)))
		if it.ValidForPrefix([]byte(auditKeyPrefix)) {
			key := it.Item().Key()
			seq = binary.BigEndian.Uint64(key[len(auditKeyPrefix):])
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// GetAuditRecords returns up to count audit records starting at the given
// sequence number (inclusive), in sequence order
func (d *Database) GetAuditRecords(
	startSeq uint64,
	count int,
) ([]AuditRecord, error) {
	if startSeq == 0 {
		startSeq = 1
	}
	ret := []AuditRecord{}
	err := d.blob.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(auditKey(startSeq)); it.ValidForPrefix([]byte(auditKeyPrefix)); it.Next() {
			if count > 0 && len(ret) >= count {
				break
			}
			var record AuditRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("failed to decode audit record: %w", err)
			}
			ret = append(ret, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// GetAuditRecord returns the audit record with the given sequence number
func (d *Database) GetAuditRecord(seq uint64) (*AuditRecord, error) {
	var record AuditRecord
	err := d.blob.View(func(txn *badger.Txn) error {
		item, err := txn.Get(auditKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
