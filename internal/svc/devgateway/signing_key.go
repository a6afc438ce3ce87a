package devgateway

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

// KeyType is the PEM block type written for generated keys.
const KeyType = "RSA PRIVATE KEY"

// DefaultKeySize is the default RSA key size in bits.
const DefaultKeySize = 2048

// ParseSigningKey decodes a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func ParseSigningKey(data []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}

	return key, nil
}

// MarshalSigningKey encodes an RSA private key as a PKCS#1 PEM block.
func MarshalSigningKey(key *rsa.PrivateKey) []byte {
	//nolint:exhaustruct
	return pem.EncodeToMemory(&pem.Block{
		Type:  KeyType,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// LoadOrCreateSigningKey reads the key at path, or generates one of the given size
// and writes it there (mode 0600) when the file does not exist yet.
func LoadOrCreateSigningKey(path string, bits int) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return ParseSigningKey(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	if err := os.WriteFile(path, MarshalSigningKey(key), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return key, nil
}
