// Package dicomuid generates DICOM UIDs: dotted-decimal strings, never raw
// UUID hex, per PS3.5 Annex B's "2.25." UUID-derived UID root.
package dicomuid

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/google/uuid"
)

// Root is the UUID-derived UID root registered by PS3.5 Annex B: any UUID,
// interpreted as a 128-bit unsigned integer and written in decimal, is a
// valid UID when prefixed with this arc.
const Root = "2.25."

// Md5ThenHex hex-encodes the MD5 digest of value.
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// New generates a fresh random DICOM UID rooted at Root.
func New() string {
	return fromUUID(uuid.New())
}

// Deterministic derives a stable DICOM UID from value's JSON encoding: the
// same value always yields the same UID, letting a re-sent C-STORE of
// identical content resolve to the instance already stored. Returns "" if
// value cannot be marshaled.
func Deterministic(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	hasher := md5.New()
	hasher.Write(raw)
	sum := hasher.Sum(nil)
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		return ""
	}
	return fromUUID(id)
}

// fromUUID renders a UUID's 128 bits as the decimal integer PS3.5 Annex B
// requires, since DICOM UID components may only contain digits.
func fromUUID(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	return Root + n.String()
}
