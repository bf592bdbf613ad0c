// Package badge issues and checks the domain-locked tokens behind the
// embeddable "verified" badge. A badge token is independent of the guardian
// verification flow: it only exists for claims that are already registered.
package badge

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pascaldekloe/jwt"
)

// TokenTTL is how long an issued badge token stays valid.
const TokenTTL = 365 * 24 * time.Hour

var (
	ErrInvalidToken   = errors.New("invalid or expired badge token")
	ErrDomainMismatch = errors.New("badge token not valid for this domain")
	ErrBadReferer     = errors.New("invalid referer URL")
)

type Badge struct {
	secretKey []byte
}

func New(secretKey string) *Badge {
	return &Badge{secretKey: []byte(secretKey)}
}

type TokenPayload struct {
	ClaimID     string
	ApplicantID string
	Domain      string
	Expires     time.Time
}

// Generate signs a badge token locked to a claim, its applicant and one
// domain (subdomains of it included).
func (b *Badge) Generate(claimID, applicantID, domain string) (string, error) {
	var claims jwt.Claims
	claims.Subject = claimID

	now := time.Now()
	claims.Issued = jwt.NewNumericTime(now)
	claims.Expires = jwt.NewNumericTime(now.Add(TokenTTL))

	claims.Set = map[string]any{
		"domain":       strings.ToLower(domain),
		"applicant_id": applicantID,
	}

	jwtBytes, err := claims.HMACSign(jwt.HS256, b.secretKey)
	if err != nil {
		return "", err
	}

	return string(jwtBytes), nil
}

// Verify checks the signature and expiry and returns the embedded payload.
func (b *Badge) Verify(tokenValue string) (*TokenPayload, error) {
	claims, err := jwt.HMACCheck([]byte(tokenValue), b.secretKey)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.Valid(time.Now()) {
		return nil, ErrInvalidToken
	}

	domain, _ := claims.String("domain")
	applicantID, _ := claims.String("applicant_id")

	payload := &TokenPayload{
		ClaimID:     claims.Subject,
		ApplicantID: applicantID,
		Domain:      domain,
	}
	if claims.Expires != nil {
		payload.Expires = claims.Expires.Time()
	}

	return payload, nil
}

// VerifyForReferer additionally checks that the referring page, when one is
// present, sits on the token's domain or a subdomain of it. An absent
// referer is accepted; that keeps direct and test access working.
func (b *Badge) VerifyForReferer(tokenValue, refererURL string) (*TokenPayload, error) {
	payload, err := b.Verify(tokenValue)
	if err != nil {
		return nil, err
	}

	if refererURL == "" {
		return payload, nil
	}

	parsed, err := url.Parse(refererURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, ErrBadReferer
	}

	host := strings.ToLower(parsed.Hostname())

	if host != payload.Domain && !strings.HasSuffix(host, "."+payload.Domain) {
		return nil, fmt.Errorf("%w: token bound to %s, used on %s", ErrDomainMismatch, payload.Domain, host)
	}

	return payload, nil
}
