package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-multi-auth/internal/model"
)

// CredentialVerifier checks an email and password against one principal
// type's store.
type CredentialVerifier struct {
	stores PrincipalStores
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(stores PrincipalStores, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{stores: stores, hasher: hasher}
}

// Verify returns model.ErrUnauthorized for an unknown email and for a wrong
// password alike. rememberMe is accepted for compatibility with existing
// clients and does not change token lifetimes.
func (v *CredentialVerifier) Verify(ctx context.Context, t model.PrincipalType, email string, password string, rememberMe bool) (model.Principal, error) {
	_ = rememberMe

	store, err := v.stores.For(t)
	if err != nil {
		return model.Principal{}, err
	}

	p, err := store.FindByField(ctx, "email", NormalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		// Burn the same hashing work as a real comparison.
		v.hasher.Compare(v.dummy(), password)
		return model.Principal{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.Principal{}, fmt.Errorf("verify %s credentials: %w", t, err)
	}

	if !v.hasher.Compare(p.PasswordHash, password) {
		return model.Principal{}, model.ErrUnauthorized
	}
	return p, nil
}

func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		secret, err := randomString(24)
		if err != nil {
			secret = "unused-dummy-password"
		}
		v.dummyHash, _ = v.hasher.Hash(secret)
	})
	return v.dummyHash
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
