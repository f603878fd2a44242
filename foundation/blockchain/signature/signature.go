// Package signature provides the cryptographic primitives the node uses
// to identify peers, sign transactions, and hash blocks: RSA-1024
// PKCS#1 signatures over SHA-256, and the canonical JSON encoding used
// uniformly for hash input, sign input, and wire transport.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// keyBits is the RSA modulus size this node uses for identity keys.
const keyBits = 1024

// maxMessageLen is the largest payload PKCS#1 v1.5 with a 1024-bit key
// and SHA-256 padding can sign: (1024/8) - 11 (PKCS#1 padding overhead)
// leaves 117 bytes of usable space.
const maxMessageLen = 117

// ZeroHash represents a hash value of all zeros, used for the genesis
// block's previous-hash field: 64 hex characters of zero, the same
// length as a SHA-256 hex digest.
var ZeroHash = strings.Repeat("0", 64)

// PrivKey wraps an RSA private key so the rest of the node never reaches
// into crypto/rsa directly.
type PrivKey struct {
	key *rsa.PrivateKey
}

// PubKey wraps an RSA public key and knows how to (de)serialize itself as
// PKCS#1 PEM, the wire representation used on the network.
type PubKey struct {
	key *rsa.PublicKey
}

// Signature is the raw bytes produced by Sign; on the wire it is a JSON
// array of byte values, matching the source's Vec<u8> default encoding
// rather than Go's usual base64-string encoding for []byte.
type Signature []byte

// MarshalJSON encodes the signature as a JSON array of byte values.
func (s Signature) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(s))
	for i, b := range s {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes a JSON array of byte values into a Signature. A
// JSON null decodes to a nil Signature, matching a None proof.
func (s *Signature) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	sig := make(Signature, len(ints))
	for i, v := range ints {
		sig[i] = byte(v)
	}
	*s = sig

	return nil
}

// GenerateKey produces a fresh RSA-1024 PKCS#1 keypair.
func GenerateKey() (PrivKey, PubKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return PrivKey{}, PubKey{}, fmt.Errorf("generating rsa key: %w", err)
	}

	return PrivKey{key: key}, PubKey{key: &key.PublicKey}, nil
}

// Sign produces a PKCS1v15 signature over the SHA-256 digest of bytes. It
// fails if bytes is longer than the single RSA block this key size can
// encode (117 bytes for a 1024-bit key).
func Sign(data []byte, priv PrivKey) (Signature, error) {
	if len(data) > maxMessageLen {
		return nil, fmt.Errorf("payload too long to sign: got %d bytes, max %d", len(data), maxMessageLen)
	}

	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing payload: %w", err)
	}

	return Signature(sig), nil
}

// Verify checks that sig is a valid PKCS1v15/SHA-256 signature over data
// under pub.
func Verify(data []byte, sig Signature, pub PubKey) error {
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(pub.key, crypto.SHA256, digest[:], sig); err != nil {
		return errors.New("signature does not verify")
	}

	return nil
}

// Stamp produces the canonical byte encoding used uniformly for hashing,
// signing, and wire transport: a single JSON marshal. Go's encoding/json
// emits struct fields in declaration order and map keys in sorted order,
// so two nodes serializing the same logical value agree byte for byte.
func Stamp(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stamping value: %w", err)
	}

	return data, nil
}

// Hash returns the SHA-256 hex digest of the canonical encoding of v.
func Hash(v any) (string, error) {
	data, err := Stamp(v)
	if err != nil {
		return "", err
	}

	return HashBytes(data), nil
}

// HashBytes returns the SHA-256 hex digest of raw bytes, with no
// intermediate JSON encoding. Used for proof-of-work hashing, where the
// input is already the concatenation of a canonical encoding and a
// nonce's raw little-endian bytes.
func HashBytes(data []byte) string {
	digest := sha256.Sum256(data)
	return fmt.Sprintf("%x", digest)
}

// MarshalJSON encodes the public key as a PKCS#1 PEM string, the wire
// shape used throughout the node.
func (p PubKey) MarshalJSON() ([]byte, error) {
	if p.key == nil {
		return json.Marshal("")
	}

	block := &pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(p.key),
	}

	return json.Marshal(string(pem.EncodeToMemory(block)))
}

// UnmarshalJSON parses a PKCS#1 PEM string produced by MarshalJSON.
func (p *PubKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding public key string: %w", err)
	}

	if s == "" {
		p.key = nil
		return nil
	}

	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return errors.New("decoding public key: invalid PEM")
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}

	p.key = key
	return nil
}

// Equal reports whether two public keys refer to the same RSA key.
func (p PubKey) Equal(other PubKey) bool {
	if p.key == nil || other.key == nil {
		return p.key == other.key
	}

	return p.key.Equal(other.key)
}

// String implements fmt.Stringer for logging.
func (p PubKey) String() string {
	data, err := p.MarshalJSON()
	if err != nil {
		return "<invalid pubkey>"
	}

	var s string
	_ = json.Unmarshal(data, &s)
	return s
}
