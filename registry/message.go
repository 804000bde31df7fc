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

package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxScore is the upper bound for both quality and reputation scores
const MaxScore = 100

var ErrScoreOutOfRange = errors.New("score out of range")

// Scores carries the two values that independently gate reward release:
// the attesting verifier's reputation and the attested quality score
type Scores struct {
	VerifierReputation uint8
	Quality            uint8
}

// NewScores builds a Scores value, rejecting out-of-range inputs
func NewScores(verifierReputation, quality uint64) (Scores, error) {
	if verifierReputation > MaxScore {
		return Scores{}, fmt.Errorf(
			"verifier reputation %d: %w",
			verifierReputation,
			ErrScoreOutOfRange,
		)
	}
	if quality > MaxScore {
		return Scores{}, fmt.Errorf(
			"quality score %d: %w",
			quality,
			ErrScoreOutOfRange,
		)
	}
	return Scores{
		VerifierReputation: uint8(verifierReputation),
		Quality:            uint8(quality),
	}, nil
}

// ContributionMessage builds the canonical byte message a verifier signs
// to attest a contribution: campaign ID, data hash, and data URL bytes
// followed by the quality score as a fixed-width little-endian integer.
// The fixed-width encoding (not decimal text) is load-bearing for
// cross-implementation compatibility.
func ContributionMessage(
	campaignID string,
	dataHash []byte,
	dataURL string,
	qualityScore uint8,
) []byte {
	msg := make(
		[]byte,
		0,
		len(campaignID)+len(dataHash)+len(dataURL)+8,
	)
	msg = append(msg, []byte(campaignID)...)
	msg = append(msg, dataHash...)
	msg = append(msg, []byte(dataURL)...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(qualityScore))
	return msg
}

// VerificationMessage builds the canonical byte message for the decoupled
// verification flow: contribution ID followed by the little-endian quality
// score
func VerificationMessage(
	contributionID string,
	qualityScore uint8,
) []byte {
	msg := make([]byte, 0, len(contributionID)+8)
	msg = append(msg, []byte(contributionID)...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(qualityScore))
	return msg
}

// MessageDigest returns the fixed digest signatures are verified against.
// Messages are prehashed with SHA-256 before ed25519 verification.
func MessageDigest(message []byte) []byte {
	digest := sha256.Sum256(message)
	return digest[:]
}
