// Package payloadstore is the forgettable raw-payload layer behind each
// Event's opaque payload_ref: full tool inputs/outputs and LLM turn
// content live here, encrypted at rest under a per-user key, addressed
// by a pseudonym rather than event_id so that access to the graph or
// event timeline alone never leaks payload content. Erasure is handled
// by crypto-shredding the user's key (see kms.go) rather than deleting
// individual rows.
package payloadstore

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctxatlas/atlas/pkg/config"
)

// Store is the payload encryption/storage layer.
type Store struct {
	kms *kms
}

// New builds a Store over an already-connected Postgres pool.
func New(pool *pgxpool.Pool, cfg *config.PayloadStoreConfig) *Store {
	return &Store{kms: &kms{pool: pool, keyBytes: cfg.KeyBytes}}
}

// Put encrypts payload under userID's active key and returns the
// pseudonym to store as the owning Event's payload_ref.
func (s *Store) Put(ctx context.Context, userID string, payload []byte) (pseudonym string, err error) {
	keyID, key, err := s.kms.activeKey(ctx, userID)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("payloadstore: nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, payload, nil)

	pseudonym = uuid.NewString()
	_, err = s.kms.pool.Exec(ctx,
		`INSERT INTO event_payloads (pseudonym, key_id, nonce, ciphertext) VALUES ($1,$2,$3,$4)`,
		pseudonym, keyID, nonce, ciphertext)
	if err != nil {
		return "", fmt.Errorf("payloadstore: insert: %w", err)
	}
	return pseudonym, nil
}

// Get decrypts the payload behind pseudonym. Returns ErrKeyRevoked if
// the owning user's key has been crypto-shredded.
func (s *Store) Get(ctx context.Context, pseudonym string) ([]byte, error) {
	var keyID string
	var nonce, ciphertext []byte
	row := s.kms.pool.QueryRow(ctx,
		`SELECT key_id, nonce, ciphertext FROM event_payloads WHERE pseudonym = $1`, pseudonym)
	if err := row.Scan(&keyID, &nonce, &ciphertext); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("payloadstore: pseudonym %s not found", pseudonym)
		}
		return nil, fmt.Errorf("payloadstore: lookup: %w", err)
	}

	key, err := s.kms.keyByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("payloadstore: decrypt: %w", err)
	}
	return plaintext, nil
}
