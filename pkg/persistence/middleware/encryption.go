package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// encPrefix marks an encrypted field value. Values without the prefix are
// returned as-is on read, so encryption can be enabled over a store that
// already holds plaintext sessions.
const encPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the free-text
// fields of a session with AES-GCM before they reach the wrapped store:
// decision rationales, question snapshots, consulted research references,
// and the overall assessment. Identifiers, status, and version stay in the
// clear because stores index on them.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Create(ctx context.Context, session *domain.DecisionSession) error {
	sealed, err := m.seal(session)
	if err != nil {
		return err
	}
	return m.next.Create(ctx, sealed)
}

func (m *encryptionMiddleware) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	session, err := m.next.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.open(session)
}

func (m *encryptionMiddleware) Put(ctx context.Context, session *domain.DecisionSession, expectedVersion int64) (int64, error) {
	sealed, err := m.seal(session)
	if err != nil {
		return 0, err
	}
	return m.next.Put(ctx, sealed, expectedVersion)
}

func (m *encryptionMiddleware) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	session, err := m.next.FindActive(ctx, caseID, playbookID)
	if err != nil {
		return nil, err
	}
	return m.open(session)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// seal clones the session and encrypts its sensitive fields. The caller's
// session is never mutated.
func (m *encryptionMiddleware) seal(session *domain.DecisionSession) (*domain.DecisionSession, error) {
	sealed := session.Clone()
	if err := m.applyToSensitiveFields(sealed, m.encryptString); err != nil {
		return nil, fmt.Errorf("failed to encrypt session %s: %w", session.SessionID, err)
	}
	return sealed, nil
}

// open decrypts the sensitive fields in place. The session came out of the
// wrapped store as a fresh copy, so mutating it is safe.
func (m *encryptionMiddleware) open(session *domain.DecisionSession) (*domain.DecisionSession, error) {
	if err := m.applyToSensitiveFields(session, m.decryptString); err != nil {
		return nil, fmt.Errorf("failed to decrypt session %s: %w", session.SessionID, err)
	}
	return session, nil
}

func (m *encryptionMiddleware) applyToSensitiveFields(session *domain.DecisionSession, apply func(string) (string, error)) error {
	var err error
	for i := range session.History {
		rec := &session.History[i]
		if rec.Rationale, err = apply(rec.Rationale); err != nil {
			return err
		}
		if rec.Question, err = apply(rec.Question); err != nil {
			return err
		}
		for j, ref := range rec.ResearchContextConsulted {
			if rec.ResearchContextConsulted[j], err = apply(ref); err != nil {
				return err
			}
		}
	}
	if session.FinalRecommendations != nil {
		fr := session.FinalRecommendations
		if fr.OverallAssessment, err = apply(fr.OverallAssessment); err != nil {
			return err
		}
	}
	return nil
}

func (m *encryptionMiddleware) encryptString(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(value), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return encPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) decryptString(value string) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		// Plaintext from before encryption was enabled reads back unchanged.
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
