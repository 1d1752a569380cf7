package config

// PayloadStoreConfig configures the forgettable raw-payload store: event
// payloads are encrypted per-user so that revoking a user's key
// (crypto-shredding) makes every payload referencing it permanently
// unreadable without a row-by-row delete.
type PayloadStoreConfig struct {
	// KeyBytes is the AES key size in bytes (16, 24, or 32 for
	// AES-128/192/256).
	KeyBytes int `yaml:"key_bytes"`
}

// DefaultPayloadStoreConfig returns the built-in payload store defaults.
func DefaultPayloadStoreConfig() *PayloadStoreConfig {
	return &PayloadStoreConfig{KeyBytes: 32}
}
