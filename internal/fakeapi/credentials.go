package fakeapi

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidClient is returned when an API key/secret pair does not match.
var ErrInvalidClient = errors.New("invalid client credentials")

// CredentialStore holds API keys with bcrypt-hashed secrets.
type CredentialStore struct {
	mu     sync.RWMutex
	hashes map[string][]byte
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{hashes: make(map[string][]byte)}
}

// Add registers apiKey with secret, replacing any previous secret.
func (s *CredentialStore) Add(apiKey, secret string) error {
	if apiKey == "" || secret == "" {
		return errors.New("api key and secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	s.mu.Lock()
	s.hashes[apiKey] = hash
	s.mu.Unlock()
	return nil
}

// Check verifies an API key/secret pair.
func (s *CredentialStore) Check(apiKey, secret string) error {
	s.mu.RLock()
	hash, ok := s.hashes[apiKey]
	s.mu.RUnlock()
	if !ok {
		return ErrInvalidClient
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return ErrInvalidClient
	}
	return nil
}
