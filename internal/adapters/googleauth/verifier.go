// Package googleauth verifies Google Identity Services ID tokens.
package googleauth

import (
	"context"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"rollbook/internal/application/orchestrators"
)

// Verifier checks ID tokens against the deployment's OAuth client ID.
type Verifier struct {
	clientID string
}

// NewVerifier creates a verifier for the given Google OAuth client ID.
// PRE: clientID is the deployment's Google OAuth 2.0 client ID
func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

// Verify validates the token's signature, audience and expiry against
// Google's published keys, then extracts the identity claims.
// PRE: idToken is the raw credential posted by Google Identity Services
// POST: Returns claims only for a token issued to this client ID
func (v *Verifier) Verify(_ context.Context, idToken string) (orchestrators.GoogleClaims, error) {
	checker := googleAuthIDTokenVerifier.Verifier{}
	if err := checker.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return orchestrators.GoogleClaims{}, fmt.Errorf("verify google id token: %w", err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return orchestrators.GoogleClaims{}, fmt.Errorf("decode google id token: %w", err)
	}

	return orchestrators.GoogleClaims{
		Sub:   claimSet.Sub,
		Email: claimSet.Email,
		Name:  claimSet.Name,
	}, nil
}
