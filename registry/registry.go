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

// Package registry maintains the set of verifier keys trusted to attest
// contribution quality and gates every contribution signature through it.
package registry

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
)

// Common errors returned by Registry operations
var (
	ErrVerifierExists   = errors.New("verifier key already registered")
	ErrVerifierNotFound = errors.New("verifier key not found")
	ErrVerifierInactive = errors.New("verifier key inactive")
	ErrInvalidKeyLength = errors.New("invalid public key length")
	ErrNotAdmin         = errors.New("caller is not the registry admin")
)

// DefaultReputation is assigned to newly registered verifier keys
const DefaultReputation = 100

type RegistryConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	// Admin is the only account allowed to mutate the verifier set
	Admin string
}

type Registry struct {
	config RegistryConfig
	logger *slog.Logger
	db     *database.Database
}

// Result is the outcome of a registry-wide contribution verification.
// Valid=false with a nil error means no active key matched; the caller
// surfaces that as a normal signature rejection, not a system fault.
type Result struct {
	Valid  bool
	KeyID  string
	Scores Scores
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		config: cfg,
		logger: cfg.Logger.With("component", "registry"),
		db:     cfg.Database,
	}
}

func (r *Registry) checkAdmin(caller string) error {
	if caller == "" || caller != r.config.Admin {
		return fmt.Errorf("%s: %w", caller, ErrNotAdmin)
	}
	return nil
}

// AddVerifier registers a new verifier key. Admin-only. The key starts
// active with the default reputation and a zeroed verification counter.
func (r *Registry) AddVerifier(
	caller string,
	keyID string,
	pubkey []byte,
) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if len(pubkey) != ed25519.PublicKeySize {
		return fmt.Errorf(
			"%d bytes: %w",
			len(pubkey),
			ErrInvalidKeyLength,
		)
	}
	txn := r.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		existing, err := r.db.GetVerifierKey(keyID, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s: %w", keyID, ErrVerifierExists)
		}
		return r.db.CreateVerifierKey(
			&models.VerifierKey{
				KeyID:           keyID,
				PublicKey:       pubkey,
				ReputationScore: DefaultReputation,
				Active:          true,
				LastActive:      time.Now().Unix(),
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	r.logger.Info("registered verifier key", "key_id", keyID)
	return nil
}

// RemoveVerifier deactivates a verifier key. Admin-only. The key record is
// kept so verification history survives removal.
func (r *Registry) RemoveVerifier(caller, keyID string) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	txn := r.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		key, err := r.db.GetVerifierKey(keyID, txn)
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("%s: %w", keyID, ErrVerifierNotFound)
		}
		key.Active = false
		return r.db.UpdateVerifierKey(key, txn)
	})
	if err != nil {
		return err
	}
	r.logger.Info("deactivated verifier key", "key_id", keyID)
	return nil
}

// UpdateReputation sets a verifier key's reputation score. Admin-only.
func (r *Registry) UpdateReputation(
	caller, keyID string,
	newScore uint64,
) error {
	if err := r.checkAdmin(caller); err != nil {
		return err
	}
	if newScore > MaxScore {
		return fmt.Errorf("%d: %w", newScore, ErrScoreOutOfRange)
	}
	txn := r.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		key, err := r.db.GetVerifierKey(keyID, txn)
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("%s: %w", keyID, ErrVerifierNotFound)
		}
		key.ReputationScore = uint8(newScore)
		return r.db.UpdateVerifierKey(key, txn)
	})
}

// IsActiveVerifier returns true when the given key is registered and
// active
func (r *Registry) IsActiveVerifier(
	keyID string,
	txn *database.Txn,
) (bool, error) {
	key, err := r.db.GetVerifierKey(keyID, txn)
	if err != nil {
		return false, err
	}
	return key != nil && key.Active, nil
}

// VerifySignature checks a signature from a specific named key against the
// digest of message. On success the key's verification counter and
// last-active timestamp are updated, so this is a transactional operation
// despite reading like a predicate; callers must not replay it for the
// same proof.
func (r *Registry) VerifySignature(
	keyID string,
	message []byte,
	signature []byte,
	txn *database.Txn,
) (bool, error) {
	if txn == nil {
		var valid bool
		txn = r.db.Transaction(true)
		err := txn.Do(func(txn *database.Txn) error {
			var err error
			valid, err = r.VerifySignature(keyID, message, signature, txn)
			return err
		})
		return valid, err
	}
	key, err := r.db.GetVerifierKey(keyID, txn)
	if err != nil {
		return false, err
	}
	if key == nil {
		return false, fmt.Errorf("%s: %w", keyID, ErrVerifierNotFound)
	}
	if !key.Active {
		return false, nil
	}
	if !ed25519.Verify(
		ed25519.PublicKey(key.PublicKey),
		MessageDigest(message),
		signature,
	) {
		return false, nil
	}
	key.TotalVerifications++
	key.LastActive = time.Now().Unix()
	if err := r.db.UpdateVerifierKey(key, txn); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyContribution checks the attestation signature for a contribution
// against every active key in registration order, first match wins. No
// explicit key is named by the caller. A non-matching signature is not an
// error: the zero Result is returned so the caller can reject the
// submission as invalid rather than failing the operation.
func (r *Registry) VerifyContribution(
	campaignID string,
	dataHash []byte,
	dataURL string,
	signature []byte,
	qualityScore uint8,
	txn *database.Txn,
) (Result, error) {
	if qualityScore > MaxScore {
		return Result{}, fmt.Errorf(
			"quality score %d: %w",
			qualityScore,
			ErrScoreOutOfRange,
		)
	}
	if txn == nil {
		var result Result
		txn = r.db.Transaction(true)
		err := txn.Do(func(txn *database.Txn) error {
			var err error
			result, err = r.VerifyContribution(
				campaignID,
				dataHash,
				dataURL,
				signature,
				qualityScore,
				txn,
			)
			return err
		})
		return result, err
	}
	digest := MessageDigest(
		ContributionMessage(campaignID, dataHash, dataURL, qualityScore),
	)
	keys, err := r.db.ListActiveVerifierKeys(txn)
	if err != nil {
		return Result{}, err
	}
	for _, key := range keys {
		if !ed25519.Verify(
			ed25519.PublicKey(key.PublicKey),
			digest,
			signature,
		) {
			continue
		}
		key.TotalVerifications++
		key.LastActive = time.Now().Unix()
		if err := r.db.UpdateVerifierKey(&key, txn); err != nil {
			return Result{}, err
		}
		return Result{
			Valid: true,
			KeyID: key.KeyID,
			Scores: Scores{
				VerifierReputation: key.ReputationScore,
				Quality:            qualityScore,
			},
		}, nil
	}
	return Result{}, nil
}

// VerifyAttestation checks a decoupled verification signature (over a
// contribution ID and quality score) against every active key in
// registration order. Same first-match-wins policy as VerifyContribution.
func (r *Registry) VerifyAttestation(
	contributionID string,
	qualityScore uint8,
	signature []byte,
	txn *database.Txn,
) (Result, error) {
	if qualityScore > MaxScore {
		return Result{}, fmt.Errorf(
			"quality score %d: %w",
			qualityScore,
			ErrScoreOutOfRange,
		)
	}
	digest := MessageDigest(
		VerificationMessage(contributionID, qualityScore),
	)
	keys, err := r.db.ListActiveVerifierKeys(txn)
	if err != nil {
		return Result{}, err
	}
	for _, key := range keys {
		if !ed25519.Verify(
			ed25519.PublicKey(key.PublicKey),
			digest,
			signature,
		) {
			continue
		}
		key.TotalVerifications++
		key.LastActive = time.Now().Unix()
		if err := r.db.UpdateVerifierKey(&key, txn); err != nil {
			return Result{}, err
		}
		return Result{
			Valid: true,
			KeyID: key.KeyID,
			Scores: Scores{
				VerifierReputation: key.ReputationScore,
				Quality:            qualityScore,
			},
		}, nil
	}
	return Result{}, nil
}

// GetVerifier returns the verifier key record for the given key ID
func (r *Registry) GetVerifier(
	keyID string,
) (*models.VerifierKey, error) {
	key, err := r.db.GetVerifierKey(keyID, nil)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%s: %w", keyID, ErrVerifierNotFound)
	}
	return key, nil
}
