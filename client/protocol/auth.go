package protocol

import (
	"crypto/sha256"
	"encoding/base64"
)

// AuthToken computes the authentication string for an Identify message.
//
//	secret = base64(sha256(password + salt))
//	auth   = base64(sha256(secret + challenge))
//
// The secret is concatenated as its base64 text, not its raw digest.
func AuthToken(password, salt, challenge string) string {
	secretSum := sha256.Sum256([]byte(password + salt))
	secret := base64.StdEncoding.EncodeToString(secretSum[:])

	authSum := sha256.Sum256([]byte(secret + challenge))
	return base64.StdEncoding.EncodeToString(authSum[:])
}
