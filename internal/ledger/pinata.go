// Package ledger talks to the external pinning service that anchors a
// registration outside our own data store. Pinata's pinJSONToIPFS endpoint
// is the one implementation in use; anything that returns an opaque
// reference for a registration record satisfies the same contract.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cradoe/timint/internal/lifecycle"
)

const DefaultEndpoint = "https://api.pinata.cloud"

const defaultTimeout = 10 * time.Second

type Pinata struct {
	endpoint string
	jwt      string
	client   *http.Client
}

func NewPinata(endpoint, jwt string) *Pinata {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Pinata{
		endpoint: endpoint,
		jwt:      jwt,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

type pinRequest struct {
	PinataContent  any            `json:"pinataContent"`
	PinataMetadata map[string]any `json:"pinataMetadata"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Submit pins the registration record and returns its content identifier.
// The call is bounded by the request context and the client timeout; it is
// never retried here — a failed admin approval is re-invoked instead.
func (p *Pinata) Submit(ctx context.Context, record *lifecycle.RegistrationRecord) (string, error) {
	body, err := json.Marshal(&pinRequest{
		PinataContent: record,
		PinataMetadata: map[string]any{
			"name": fmt.Sprintf("timint-registration-%s", record.ApplicantID),
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pinata returned status %d", resp.StatusCode)
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", err
	}

	if pinned.IpfsHash == "" {
		return "", fmt.Errorf("pinata response missing IpfsHash")
	}

	return pinned.IpfsHash, nil
}

// GatewayURL builds the public gateway address for a pinned reference.
func GatewayURL(reference string) string {
	return "https://gateway.pinata.cloud/ipfs/" + reference
}
