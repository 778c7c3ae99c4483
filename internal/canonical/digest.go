package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Domain prefixes for content digests.
// The version suffix leaves room for an algorithm change.
const (
	DomainArtifact = "basic-cleaning/artifact/v1"
	DomainConfig   = "basic-cleaning/config/v1"
)

// Digest computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps the domain/data boundary unambiguous.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestReader is Digest over a stream. It returns the digest and the number
// of payload bytes read.
func DigestReader(domain string, r io.Reader) (string, int64, error) {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ConfigDigest returns the digest of a configuration's canonical encoding.
func ConfigDigest(cfg map[string]any) (string, error) {
	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}
	return Digest(DomainConfig, data), nil
}
