package ddscert

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Description is a flat, display-oriented view of a certificate.
type Description struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	Serial    string    `json:"serial"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	CertType  string    `json:"cert_type"`
	IsCA      bool      `json:"is_ca"`
	KeyAlgo   string    `json:"key_algorithm"`
	KeySize   string    `json:"key_size"`
	SigAlg    string    `json:"signature_algorithm"`
	SHA256    string    `json:"sha256_fingerprint"`
	SHA1      string    `json:"sha1_fingerprint"`
	SKI       string    `json:"subject_key_id,omitempty"`
	AKI       string    `json:"authority_key_id,omitempty"`
}

// Describe builds a Description for cert.
func Describe(cert *x509.Certificate) Description {
	return Description{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		Serial:    cert.SerialNumber.String(),
		NotBefore: cert.NotBefore.UTC(),
		NotAfter:  cert.NotAfter.UTC(),
		CertType:  GetCertificateType(cert),
		IsCA:      certIsCA(cert),
		KeyAlgo:   PublicKeyAlgorithmName(cert.PublicKey),
		KeySize:   publicKeySize(cert.PublicKey),
		SigAlg:    cert.SignatureAlgorithm.String(),
		SHA256:    CertFingerprintColonSHA256(cert),
		SHA1:      CertFingerprintColonSHA1(cert),
		SKI:       colonHexOrEmpty(cert.SubjectKeyId),
		AKI:       colonHexOrEmpty(cert.AuthorityKeyId),
	}
}

// certIsCA reports whether the basic constraints extension is present and
// marks the certificate as a CA.
func certIsCA(cert *x509.Certificate) bool {
	return cert != nil && cert.BasicConstraintsValid && cert.IsCA
}

// GetCertificateType determines if a certificate is root, intermediate, or leaf.
func GetCertificateType(cert *x509.Certificate) string {
	if certIsCA(cert) {
		if bytes.Equal(cert.RawIssuer, cert.RawSubject) {
			return "root"
		}
		return "intermediate"
	}
	return "leaf"
}

// PublicKeyAlgorithmName returns a human-readable name for a public key's algorithm.
func PublicKeyAlgorithmName(key crypto.PublicKey) string {
	switch key.(type) {
	case *ecdsa.PublicKey:
		return "ECDSA"
	case *rsa.PublicKey:
		return "RSA"
	case ed25519.PublicKey, *ed25519.PublicKey:
		return "Ed25519"
	default:
		return "unknown"
	}
}

func publicKeySize(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("%d", k.N.BitLen())
	case *ecdsa.PublicKey:
		return k.Curve.Params().Name
	case ed25519.PublicKey:
		return "256"
	default:
		return "unknown"
	}
}

// CertFingerprint returns the SHA-256 fingerprint of a certificate as a lowercase hex string.
func CertFingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

// CertFingerprintColonSHA256 returns the SHA-256 fingerprint of a certificate
// in uppercase colon-separated hex format (AA:BB:CC:...), matching the format
// used by OpenSSL and browser certificate viewers.
func CertFingerprintColonSHA256(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

// CertFingerprintColonSHA1 returns the SHA-1 fingerprint in the same format.
func CertFingerprintColonSHA1(cert *x509.Certificate) string {
	hash := sha1.Sum(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		end := min(i+2, len(h))
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, ":")
}

func colonHexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return ColonHex(b)
}
