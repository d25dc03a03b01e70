package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ContentUUID derives a stable UUID from a byte payload and a set of labels,
// e.g. pixel bytes plus their layout. Equal inputs always give equal ids.
func ContentUUID(payload []byte, labels ...string) string {
	hasher := md5.New()
	for _, l := range labels {
		hasher.Write([]byte(l))
		hasher.Write([]byte{0})
	}
	hasher.Write(payload)
	id, err := uuid.FromBytes(hasher.Sum(nil)[:16])
	if err != nil {
		return ""
	}
	return id.String()
}

// NewSessionID returns a random id for correlating log records of one render session
func NewSessionID() string {
	return uuid.NewString()
}
