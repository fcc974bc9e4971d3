package ddscert

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// DecodeJKS decodes a Java KeyStore. The same password opens the store and
// its private key entries (standard Java convention).
//
// The primary certificate is the head of the first private key entry's
// chain, by sorted alias; without one it is the first trusted certificate
// entry. The chosen alias is recorded in the result's TrustAux. Unreadable
// individual entries are skipped.
func DecodeJKS(data []byte, password string) (*Decoded, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}

	aliases := ks.Aliases()
	slices.Sort(aliases)

	for _, alias := range aliases {
		if !ks.IsPrivateKeyEntry(alias) {
			continue
		}
		entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
		if err != nil {
			continue
		}
		var chain []*x509.Certificate
		for _, c := range entry.CertificateChain {
			cert, err := x509.ParseCertificate(c.Content)
			if err != nil {
				continue
			}
			chain = append(chain, cert)
		}
		if len(chain) == 0 {
			continue
		}
		return &Decoded{
			Cert:   chain[0],
			Chain:  chain[1:],
			Aux:    &TrustAux{Alias: alias},
			Format: FormatJKS,
		}, nil
	}

	var dec *Decoded
	for _, alias := range aliases {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			continue
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			continue
		}
		if dec == nil {
			dec = &Decoded{Cert: cert, Aux: &TrustAux{Alias: alias}, Format: FormatJKS}
			continue
		}
		dec.Chain = append(dec.Chain, cert)
	}
	if dec == nil {
		return nil, errors.New("JKS contains no usable certificates")
	}
	return dec, nil
}
