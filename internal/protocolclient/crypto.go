package protocolclient

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// deriveKey stretches the server secret into a 32-byte ChaCha20-Poly1305
// key via HKDF, so the raw SERVER_SECRET env value is never used directly
// as key material.
func deriveKey(serverSecret string) ([]byte, error) {
	reader := hkdf.New(sha3.New256, []byte(serverSecret), nil, []byte("streamvault-source-credentials"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals a Credentials value for storage in sources.encrypted_credential.
func Encrypt(serverSecret string, creds Credentials) (string, error) {
	key, err := deriveKey(serverSecret)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the Credentials sealed by Encrypt.
func Decrypt(serverSecret string, encoded string) (Credentials, error) {
	key, err := deriveKey(serverSecret)
	if err != nil {
		return Credentials{}, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Credentials{}, err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, err
	}
	if len(raw) < aead.NonceSize() {
		return Credentials{}, errors.New("protocolclient: ciphertext too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Credentials{}, errors.New("protocolclient: credential decryption failed")
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
