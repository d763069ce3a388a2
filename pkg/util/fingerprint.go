// Package util holds content fingerprints printed by the command line tools.
package util

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	sum := md5.Sum(value)
	return hex.EncodeToString(sum[:])
}

// HashUUID derives a UUID from the JSON form of value, so two records with
// the same decoded fields share an id. It returns "" when value cannot be
// marshaled.
func HashUUID(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := md5.Sum(raw)
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		return ""
	}
	return id.String()
}

// PixelsUUID is the name based (version 3) UUID of a plane's pixel bytes.
func PixelsUUID(pixels []byte) string {
	return uuid.NewMD5(uuid.NameSpaceOID, pixels).String()
}
