package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// CheckinTokenLen is the length in hex characters of a check-in token.
// 20 hex chars = 80 bits, short enough for a scannable code and far
// beyond brute-force reach for an online lookup key.
const CheckinTokenLen = 20

// NewCheckinToken mints the single-use opaque token embedded in a
// reservation's scannable code. The token is derived from the
// reservation ID, the user ID, the current time and a random nonce,
// reduced through SHA-256 so none of the source fields can be
// recovered from it. Its sole job is to be an unguessable lookup key;
// it carries no semantic payload. Callers must mint it at most once
// per reservation (the token_issued column guards this).
func NewCheckinToken(reservationID, userID uint64) (string, error) {
	var seed [36]byte
	binary.BigEndian.PutUint64(seed[0:8], reservationID)
	binary.BigEndian.PutUint64(seed[8:16], userID)
	binary.BigEndian.PutUint64(seed[16:24], uint64(time.Now().UTC().UnixNano()))
	if _, err := rand.Read(seed[24:]); err != nil {
		return "", err
	}
	sum := sha256.Sum256(seed[:])
	return hex.EncodeToString(sum[:])[:CheckinTokenLen], nil
}
