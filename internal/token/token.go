// Package token derives the identifiers issued when a claim is registered.
// Everything here is deterministic given its inputs; nothing touches the
// data store.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// OwnershipTokenPattern is the shape every issued ownership token must have:
// a fixed prefix, a 13-digit millisecond timestamp and 8 uppercase hex chars.
var OwnershipTokenPattern = regexp.MustCompile(`^TMIT-\d{13}-[A-F0-9]{8}$`)

var hexPrefix = regexp.MustCompile(`^[0-9a-fA-F]{8}`)

// GenerateOwnershipToken derives the soulbound ownership token for a
// registered claim. When the external reference itself starts with hex (a
// chain transaction hash, with or without the 0x prefix) its first 8 chars
// are used directly; references that are not hex (IPFS CIDs) and the
// no-reference fallback go through SHA-256 so the token shape never varies.
func GenerateOwnershipToken(companyName, applicantID string, timestampMillis int64, externalRef string) string {
	ref := strings.TrimPrefix(externalRef, "0x")

	var hashPart string
	switch {
	case hexPrefix.MatchString(ref):
		hashPart = strings.ToUpper(ref[:8])
	case ref != "":
		hashPart = first8Sha256(ref)
	default:
		hashPart = first8Sha256(fmt.Sprintf("%s:%s:%d", companyName, applicantID, timestampMillis))
	}

	return fmt.Sprintf("TMIT-%d-%s", timestampMillis, hashPart)
}

// IsValidOwnershipToken reports whether a token has the issued shape.
func IsValidOwnershipToken(value string) bool {
	return OwnershipTokenPattern.MatchString(value)
}

// RegistrationID is the short human-facing id shown on badges and
// certificates. Purely presentational; never used for authorization.
func RegistrationID(claimID string) string {
	if len(claimID) > 8 {
		claimID = claimID[:8]
	}

	return "TMT-" + strings.ToUpper(claimID)
}

// RegistrationSignature signs the fields of a registration record so the
// pinned copy can later be checked against tampering.
func RegistrationSignature(secret, companyName, applicantID, guardianName string, timestampMillis int64) string {
	payload, _ := json.Marshal(map[string]any{
		"c": companyName,
		"u": applicantID,
		"g": guardianName,
		"t": timestampMillis,
	})

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRegistrationSignature checks a signature in constant time.
func VerifyRegistrationSignature(secret, companyName, applicantID, guardianName string, timestampMillis int64, signature string) bool {
	expected := RegistrationSignature(secret, companyName, applicantID, guardianName, timestampMillis)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func first8Sha256(input string) string {
	sum := sha256.Sum256([]byte(input))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}
