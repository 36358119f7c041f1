package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// JudgeTokenHeader carries the digest of the shared judge server token.
const JudgeTokenHeader = "X-Judge-Server-Token"

// HashToken returns the hex SHA-256 digest sent in place of the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyJudgeToken reports whether digest matches the configured token.
func VerifyJudgeToken(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(digest)) == 1
}
