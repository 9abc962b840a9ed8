package monnify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"hash"
	"strings"
)

// VerifySignature checks an HMAC hex digest of body against the signature header.
// An optional "sha256=" or "sha512=" prefix on the header is ignored. When the raw
// bytes do not match, the digest of the re-serialized JSON is tried so senders
// that reformat whitespace or key order still verify.
//
// Returns ErrNoSecret when secret is empty; callers decide whether to accept.
func VerifySignature(secret, algorithm, header string, body []byte) error {
	if secret == "" {
		return ErrNoSecret
	}

	newHash, err := hashFor(algorithm)
	if err != nil {
		return err
	}

	provided, err := hex.DecodeString(normalizeSignatureHeader(header))
	if err != nil || len(provided) == 0 {
		return ErrSignatureMismatch
	}

	if hmac.Equal(sign(newHash, secret, body), provided) {
		return nil
	}

	if canonical, ok := canonicalJSON(body); ok {
		if hmac.Equal(sign(newHash, secret, canonical), provided) {
			return nil
		}
	}

	return ErrSignatureMismatch
}

// Sign returns the hex digest Monnify would send for body.
func Sign(secret, algorithm string, body []byte) (string, error) {
	newHash, err := hashFor(algorithm)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sign(newHash, secret, body)), nil
}

func sign(newHash func() hash.Hash, secret string, body []byte) []byte {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func hashFor(algorithm string) (func() hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", "sha512":
		return sha512.New, nil
	case "sha256":
		return sha256.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func normalizeSignatureHeader(header string) string {
	header = strings.TrimSpace(header)
	lower := strings.ToLower(header)
	for _, prefix := range []string{"sha512=", "sha256="} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
	}
	return header
}

// canonicalJSON re-encodes body with compact separators and sorted keys.
func canonicalJSON(body []byte) ([]byte, bool) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return out, true
}
