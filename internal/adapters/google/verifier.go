// Package google
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fleetmon-server/internal/domain"
)

var (
	ErrTokenRejected    = errors.New("google rejected the id token")
	ErrAudienceMismatch = errors.New("id token issued for another client")
)

// tokenInfo is the subset of the tokeninfo response the verifier reads.
// Google encodes booleans in this endpoint as strings.
type tokenInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Aud           string `json:"aud"`
}

type Verifier struct {
	endpoint string
	clientID string
	client   *http.Client
}

// NewVerifier checks ID tokens against the tokeninfo endpoint. An empty
// clientID skips the audience check.
func NewVerifier(endpoint, clientID string) *Verifier {
	return &Verifier{
		endpoint: endpoint,
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Verify(ctx context.Context, idToken string) (*domain.IdentityProfile, error) {
	u, err := url.Parse(v.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid tokeninfo endpoint: %w", err)
	}
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTokenRejected, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode tokeninfo: %w", err)
	}

	if v.clientID != "" && info.Aud != v.clientID {
		return nil, ErrAudienceMismatch
	}

	return &domain.IdentityProfile{
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
		Verified: info.EmailVerified == "true",
	}, nil
}
