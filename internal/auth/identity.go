// internal/auth/identity.go
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned whenever a caller identity cannot be resolved.
var ErrUnauthorized = errors.New("unauthorized")

// Resolver turns a bearer credential into a stable user id. With AUTH_ME_URL
// set it defers to the external identity service; otherwise it verifies a
// locally issued JWT, with an X-Dev-User-Id header fallback for development.
// The engine trusts the resolved id completely.
type Resolver struct {
	meURL string
	httpc *http.Client
}

func NewResolver(meURL string) *Resolver {
	return &Resolver{
		meURL: meURL,
		httpc: &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *Resolver) Resolve(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")

	if a.meURL != "" {
		if !strings.HasPrefix(authz, "Bearer ") {
			return uuid.Nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
		}
		return a.resolveRemote(r, authz)
	}

	if strings.HasPrefix(authz, "Bearer ") {
		sub, err := AuthenticateJWT(strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: malformed subject", ErrUnauthorized)
		}
		return userID, nil
	}

	if dev := r.Header.Get("X-Dev-User-Id"); dev != "" {
		userID, err := uuid.Parse(dev)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: malformed dev user id", ErrUnauthorized)
		}
		return userID, nil
	}

	return uuid.Nil, fmt.Errorf("%w: no credentials", ErrUnauthorized)
}

func (a *Resolver) resolveRemote(r *http.Request, authz string) (uuid.UUID, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, a.meURL, nil)
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Authorization", authz)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("%w: identity service returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return uuid.Nil, fmt.Errorf("identity service: %w", err)
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user id from identity service", ErrUnauthorized)
	}
	return userID, nil
}
