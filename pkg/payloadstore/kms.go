package payloadstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrKeyRevoked is returned when a payload's encryption key has been
// crypto-shredded: the ciphertext still exists but can no longer be
// decrypted by design.
var ErrKeyRevoked = fmt.Errorf("payloadstore: key revoked")

type kms struct {
	pool     *pgxpool.Pool
	keyBytes int
}

// activeKey returns the user's current (non-revoked) key, generating and
// persisting one on first use.
func (k *kms) activeKey(ctx context.Context, userID string) (keyID string, key []byte, err error) {
	row := k.pool.QueryRow(ctx,
		`SELECT key_id, key_bytes FROM payload_keys WHERE user_id = $1 AND revoked_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`, userID)
	if err := row.Scan(&keyID, &key); err == nil {
		return keyID, key, nil
	} else if err != pgx.ErrNoRows {
		return "", nil, fmt.Errorf("payloadstore: lookup active key: %w", err)
	}

	key = make([]byte, k.keyBytes)
	if _, err := rand.Read(key); err != nil {
		return "", nil, fmt.Errorf("payloadstore: generate key: %w", err)
	}
	keyID = uuid.NewString()
	_, err = k.pool.Exec(ctx,
		`INSERT INTO payload_keys (key_id, user_id, key_bytes, created_at) VALUES ($1,$2,$3,$4)`,
		keyID, userID, key, time.Now())
	if err != nil {
		return "", nil, fmt.Errorf("payloadstore: persist key: %w", err)
	}
	return keyID, key, nil
}

// keyByID fetches a specific key, returning ErrKeyRevoked if it has been
// shredded rather than surfacing the nil key bytes to the caller.
func (k *kms) keyByID(ctx context.Context, keyID string) ([]byte, error) {
	var key []byte
	var revokedAt *time.Time
	row := k.pool.QueryRow(ctx, `SELECT key_bytes, revoked_at FROM payload_keys WHERE key_id = $1`, keyID)
	if err := row.Scan(&key, &revokedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrKeyRevoked
		}
		return nil, fmt.Errorf("payloadstore: lookup key: %w", err)
	}
	if revokedAt != nil {
		return nil, ErrKeyRevoked
	}
	return key, nil
}

// RevokeUserKeys crypto-shreds every key belonging to userID: existing
// ciphertext rows are left in place (other users' FOLLOWS/CAUSED_BY
// lineage may still reference their event_ids) but become permanently
// undecryptable, satisfying an erasure request without a graph-wide scan.
func (s *Store) RevokeUserKeys(ctx context.Context, userID string) (int64, error) {
	tag, err := s.kms.pool.Exec(ctx,
		`UPDATE payload_keys SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("payloadstore: revoke user keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("payloadstore: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("payloadstore: gcm: %w", err)
	}
	return gcm, nil
}
