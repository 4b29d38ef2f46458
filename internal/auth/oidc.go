package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates JWTs issued by a Keycloak-style provider and
// checks realm roles carried in the token claims.
type OIDCVerifier struct {
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	adminRole    string
	operatorRole string
}

// NewOIDCVerifier performs provider discovery against the issuer and
// builds a token verifier. The audience check uses audience when set,
// falling back to clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID, audience, adminRole, operatorRole string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuerURL, err)
	}

	aud := audience
	if aud == "" {
		aud = clientID
	}

	return &OIDCVerifier{
		provider:     provider,
		verifier:     provider.Verifier(&oidc.Config{ClientID: aud}),
		adminRole:    adminRole,
		operatorRole: operatorRole,
	}, nil
}

// VerifyToken checks signature, expiry, issuer and audience.
func (v *OIDCVerifier) VerifyToken(ctx context.Context, rawToken string) (*oidc.IDToken, error) {
	return v.verifier.Verify(ctx, rawToken)
}

// HasRole reports whether the token carries the role in
// realm_access.roles. Empty role matches any authenticated caller.
func (v *OIDCVerifier) HasRole(token *oidc.IDToken, role string) (bool, error) {
	if role == "" {
		return true, nil
	}

	var claims struct {
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := token.Claims(&claims); err != nil {
		return false, fmt.Errorf("parsing realm_access claims: %w", err)
	}

	for _, r := range claims.RealmAccess.Roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// Subject returns preferred_username when present, else the token subject.
func (v *OIDCVerifier) Subject(token *oidc.IDToken) string {
	var claims struct {
		PreferredUsername string `json:"preferred_username"`
	}
	if err := token.Claims(&claims); err == nil && claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return token.Subject
}
