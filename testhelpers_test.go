package ddscert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/spf13/afero"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// testPKI holds an identity CA and a participant certificate it signed.
type testPKI struct {
	caCert   *x509.Certificate
	caDER    []byte
	caKey    *ecdsa.PrivateKey
	leafCert *x509.Certificate
	leafDER  []byte
	leafKey  *ecdsa.PrivateKey
}

// newTestPKI generates a self-signed identity CA and a participant
// certificate signed by it.
func newTestPKI(t *testing.T) testPKI {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Identity CA", Organization: []string{"TestOrg"}},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatal(err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "participant-1", Organization: []string{"TestOrg"}},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caCert, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	leafCert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatal(err)
	}

	return testPKI{
		caCert:   caCert,
		caDER:    caDER,
		caKey:    caKey,
		leafCert: leafCert,
		leafDER:  leafDER,
		leafKey:  leafKey,
	}
}

func certPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// encryptedCertPEM wraps der in a legacy RFC 1423 encrypted PEM block.
func encryptedCertPEM(t *testing.T, der []byte, password string) []byte {
	t.Helper()
	//nolint:staticcheck // x509.EncryptPEMBlock is deprecated but needed for test
	block, err := x509.EncryptPEMBlock(rand.Reader, "CERTIFICATE", der, []byte(password), x509.PEMCipherAES256)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(block)
}

func pkcs12Identity(t *testing.T, pki testPKI, password string) []byte {
	t.Helper()
	pfx, err := gopkcs12.Modern.Encode(pki.leafKey, pki.leafCert, []*x509.Certificate{pki.caCert}, password)
	if err != nil {
		t.Fatal(err)
	}
	return pfx
}

func pkcs12TrustStore(t *testing.T, pki testPKI, password string) []byte {
	t.Helper()
	pfx, err := gopkcs12.Modern.EncodeTrustStore([]*x509.Certificate{pki.caCert}, password)
	if err != nil {
		t.Fatal(err)
	}
	return pfx
}

// jksStore builds a keystore with a trusted CA entry and, when withKey is
// set, a private key entry holding the participant chain.
func jksStore(t *testing.T, pki testPKI, password string, withKey bool) []byte {
	t.Helper()
	ks := keystore.New()
	if err := ks.SetTrustedCertificateEntry("ca", keystore.TrustedCertificateEntry{
		CreationTime: time.Now(),
		Certificate:  keystore.Certificate{Type: "X509", Content: pki.caDER},
	}); err != nil {
		t.Fatal(err)
	}
	if withKey {
		pkcs8, err := x509.MarshalPKCS8PrivateKey(pki.leafKey)
		if err != nil {
			t.Fatal(err)
		}
		if err := ks.SetPrivateKeyEntry("participant", keystore.PrivateKeyEntry{
			CreationTime: time.Now(),
			PrivateKey:   pkcs8,
			CertificateChain: []keystore.Certificate{
				{Type: "X509", Content: pki.leafDER},
				{Type: "X509", Content: pki.caDER},
			},
		}, []byte(password)); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// writeTempFile writes data under a fresh temp dir and returns its path.
func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// countingFs counts Open calls so tests can assert no I/O happened.
type countingFs struct {
	afero.Fs
	opens int
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens++
	return c.Fs.Open(name)
}

func memFS(t *testing.T, files map[string][]byte) *countingFs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &countingFs{Fs: fs}
}

// concatBytes joins byte slices into a new slice (slices.Concat needs Go 1.22).
func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
