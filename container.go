package ddscert

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Format names the container encoding a certificate was decoded from.
type Format string

const (
	FormatPEM        Format = "pem"
	FormatTrustedPEM Format = "trusted-pem"
	FormatDER        Format = "der"
	FormatPKCS7      Format = "pkcs7"
	FormatPKCS12     Format = "pkcs12"
	FormatJKS        Format = "jks"
)

// PEM block types accepted as the primary certificate.
const (
	pemTypeCertificate        = "CERTIFICATE"
	pemTypeX509Certificate    = "X509 CERTIFICATE"
	pemTypeTrustedCertificate = "TRUSTED CERTIFICATE"
)

// ErrPasswordRequired is wrapped by decode errors for containers that are
// protected but were decoded without a password.
var ErrPasswordRequired = errors.New("container is password protected")

// Decoded is a decoded certificate object: the primary certificate plus
// whatever else its container carried. It must be treated as read-only once
// shared.
type Decoded struct {
	// Cert is the primary certificate.
	Cert *x509.Certificate
	// Chain holds any further certificates found in the same container.
	Chain []*x509.Certificate
	// Aux is auxiliary trust metadata, nil when the container had none.
	Aux *TrustAux
	// Format is the container encoding.
	Format Format
}

// DecodeContainer decodes an encoded certificate container. PEM is tried
// first, then DER, PKCS#7, JKS and finally PKCS#12. A non-empty password is
// used as the protection secret for encrypted PEM blocks, JKS stores and
// PKCS#12 files; an empty password decodes without one.
func DecodeContainer(data []byte, password string) (*Decoded, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty certificate data")
	}

	if IsPEM(data) {
		return decodePEMContainer(data, password)
	}

	// DER certificate, optionally followed by trust metadata
	derCert, derAux, derErr := parseCertWithAux(data)
	if derErr == nil {
		return &Decoded{Cert: derCert, Aux: derAux, Format: FormatDER}, nil
	}

	certs, p7Err := DecodePKCS7(data)
	if p7Err == nil {
		return &Decoded{Cert: certs[0], Chain: certs[1:], Format: FormatPKCS7}, nil
	}

	if IsJKS(data) {
		dec, err := DecodeJKS(data, password)
		if err != nil {
			return nil, protectedErr(err, password)
		}
		return dec, nil
	}

	dec, p12Err := DecodePKCS12(data, password)
	if p12Err == nil {
		return dec, nil
	}
	if isPKCS12PasswordError(p12Err) {
		return nil, protectedErr(p12Err, password)
	}

	return nil, fmt.Errorf("not PEM, DER (%v), PKCS#7 (%v) or PKCS#12 (%v)", derErr, p7Err, p12Err)
}

// decodePEMContainer walks PEM blocks in order. The first certificate block
// is the primary object and must decode; later ones form the chain and are
// skipped if they cannot be decrypted or parsed. Non-certificate blocks
// (keys, parameters) are skipped.
func decodePEMContainer(data []byte, password string) (*Decoded, error) {
	var dec *Decoded
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if !isCertificateBlock(block.Type) {
			continue
		}

		der, err := pemBlockBytes(block, password)
		if err != nil {
			if dec != nil {
				continue
			}
			return nil, err
		}

		cert, aux, err := parseCertWithAux(der)
		if err != nil {
			if dec != nil {
				continue
			}
			return nil, fmt.Errorf("parsing %s block: %w", block.Type, err)
		}

		if dec == nil {
			format := FormatPEM
			if block.Type == pemTypeTrustedCertificate {
				format = FormatTrustedPEM
			}
			dec = &Decoded{Cert: cert, Aux: aux, Format: format}
			continue
		}
		dec.Chain = append(dec.Chain, cert)
	}
	if dec == nil {
		return nil, errors.New("no certificate found in PEM data")
	}
	return dec, nil
}

func isCertificateBlock(blockType string) bool {
	switch blockType {
	case pemTypeCertificate, pemTypeX509Certificate, pemTypeTrustedCertificate:
		return true
	default:
		return false
	}
}

// pemBlockBytes returns the block contents, decrypting legacy RFC 1423
// encrypted blocks with the password.
func pemBlockBytes(block *pem.Block, password string) ([]byte, error) {
	//nolint:staticcheck // x509.IsEncryptedPEMBlock is deprecated but needed for legacy encrypted PEM support
	if !x509.IsEncryptedPEMBlock(block) {
		return block.Bytes, nil
	}
	if password == "" {
		return nil, fmt.Errorf("decrypting %s block: %w", block.Type, ErrPasswordRequired)
	}
	//nolint:staticcheck // x509.DecryptPEMBlock is deprecated but needed for legacy encrypted PEM support
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("decrypting %s block: %w", block.Type, err)
	}
	return der, nil
}

// protectedErr tags a failure to open a protected container when no
// password was supplied.
func protectedErr(err error, password string) error {
	if password == "" {
		return fmt.Errorf("%w: %w", ErrPasswordRequired, err)
	}
	return err
}

// IsPEM returns true if the data appears to contain PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

// IsJKS reports whether data starts with the Java KeyStore magic number.
func IsJKS(data []byte) bool {
	return len(data) >= 4 && data[0] == 0xFE && data[1] == 0xED && data[2] == 0xFE && data[3] == 0xED
}
