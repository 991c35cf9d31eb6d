package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// CredentialSource tags where a token came from.
type CredentialSource string

const (
	SourceGitHubToken CredentialSource = "GITHUB_TOKEN"
	SourceGHToken     CredentialSource = "GH_TOKEN"
	SourceGHCLI       CredentialSource = "gh"
)

// Credential is a resolved bearer token.
type Credential struct {
	Token  string
	Source CredentialSource
}

// Fingerprint returns a short stable digest of the token, safe to log or to
// use as a cache partition key.
func (c Credential) Fingerprint() string {
	if c.Token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(c.Token))
	return hex.EncodeToString(sum[:8])
}

// CredentialResolver yields the credential for a client.
type CredentialResolver interface {
	Resolve(ctx context.Context) (Credential, error)
}
