package ddscert

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// DecodePKCS12 decodes a PKCS#12/PFX file. A file with a private key yields
// its leaf as the primary certificate and the CA certificates as the chain;
// a trust store (certificates only) yields its first certificate.
func DecodePKCS12(pfxData []byte, password string) (*Decoded, error) {
	_, leaf, caCerts, err := gopkcs12.DecodeChain(pfxData, password)
	if err == nil {
		return &Decoded{Cert: leaf, Chain: caCerts, Format: FormatPKCS12}, nil
	}
	if errors.Is(err, gopkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("decoding PKCS#12: %w", err)
	}

	certs, tsErr := gopkcs12.DecodeTrustStore(pfxData, password)
	if tsErr != nil {
		return nil, fmt.Errorf("decoding PKCS#12: %w", err)
	}
	if len(certs) == 0 {
		return nil, errors.New("PKCS#12 trust store contains no certificates")
	}
	return &Decoded{Cert: certs[0], Chain: certs[1:], Format: FormatPKCS12}, nil
}

func isPKCS12PasswordError(err error) bool {
	return errors.Is(err, gopkcs12.ErrIncorrectPassword)
}

// DecodePKCS7 decodes a DER-encoded PKCS#7 bundle and returns the certificates it contains.
// Returns an error if decoding fails or the bundle contains no certificates.
func DecodePKCS7(derData []byte) ([]*x509.Certificate, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	return p7.Certificates, nil
}
