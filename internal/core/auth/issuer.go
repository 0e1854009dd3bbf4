package auth

import (
	"context"
	"fmt"
	"sort"

	"github.com/solatis/ukpostcode/internal/core/db"
)

// KeyStore persists issued keys.
type KeyStore interface {
	Insert(ctx context.Context, key *db.APIKey, keyHash []byte) error
}

// Issuer creates API keys signed with the newest configured secret.
type Issuer struct {
	secretID string
	secret   []byte
	store    KeyStore
}

// NewIssuer picks the newest secret. Secret IDs are UUIDv7, so the
// lexically greatest ID is the most recently generated.
func NewIssuer(secrets map[string][]byte, store KeyStore) (*Issuer, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecrets
	}
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	newest := ids[len(ids)-1]

	return &Issuer{secretID: newest, secret: secrets[newest], store: store}, nil
}

// SecretID names the secret new keys are bound to.
func (i *Issuer) SecretID() string {
	return i.secretID
}

// Issue generates a key for tenantID and stores its HMAC.
// The plaintext key is returned once and never persisted.
func (i *Issuer) Issue(ctx context.Context, tenantID, name string) (string, *db.APIKey, error) {
	if tenantID == "" {
		return "", nil, fmt.Errorf("tenant id required")
	}

	apiKey, err := GenerateAPIKey(i.secretID)
	if err != nil {
		return "", nil, err
	}

	record := &db.APIKey{TenantID: tenantID, Name: name, SecretID: i.secretID}
	if err := i.store.Insert(ctx, record, ComputeHMAC(i.secret, apiKey)); err != nil {
		return "", nil, err
	}
	return apiKey, record, nil
}
