package ddscert

import (
	"crypto/x509"
	encoding_asn1 "encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// TrustAux is the auxiliary trust metadata that may follow a certificate in
// a "TRUSTED CERTIFICATE" container:
//
//	CertAux ::= SEQUENCE {
//	    trust   SEQUENCE OF OBJECT IDENTIFIER OPTIONAL,
//	    reject  [0] IMPLICIT SEQUENCE OF OBJECT IDENTIFIER OPTIONAL,
//	    alias   UTF8String OPTIONAL,
//	    keyid   OCTET STRING OPTIONAL,
//	    other   [1] IMPLICIT SEQUENCE OF AlgorithmIdentifier OPTIONAL }
//
// JKS containers populate only Alias.
type TrustAux struct {
	Trust  []encoding_asn1.ObjectIdentifier
	Reject []encoding_asn1.ObjectIdentifier
	Alias  string
	KeyID  []byte
}

var (
	tagAuxReject = asn1.Tag(0).ContextSpecific().Constructed()
	tagAuxOther  = asn1.Tag(1).ContextSpecific().Constructed()
)

// parseCertWithAux parses a DER certificate and, if present, the trust
// metadata immediately following it. Trailing bytes that are not valid trust
// metadata are an error.
func parseCertWithAux(der []byte) (*x509.Certificate, *TrustAux, error) {
	input := cryptobyte.String(der)
	var certDER cryptobyte.String
	if !input.ReadASN1Element(&certDER, asn1.SEQUENCE) {
		return nil, nil, errors.New("malformed certificate")
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, nil, err
	}
	if input.Empty() {
		return cert, nil, nil
	}

	aux, err := parseTrustAux(input)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing trust metadata: %w", err)
	}
	return cert, aux, nil
}

func parseTrustAux(input cryptobyte.String) (*TrustAux, error) {
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("malformed trust metadata")
	}

	aux := &TrustAux{}
	var err error
	if seq.PeekASN1Tag(asn1.SEQUENCE) {
		if aux.Trust, err = readOIDList(&seq, asn1.SEQUENCE); err != nil {
			return nil, fmt.Errorf("trust list: %w", err)
		}
	}
	if seq.PeekASN1Tag(tagAuxReject) {
		if aux.Reject, err = readOIDList(&seq, tagAuxReject); err != nil {
			return nil, fmt.Errorf("reject list: %w", err)
		}
	}
	if seq.PeekASN1Tag(asn1.UTF8String) {
		var alias cryptobyte.String
		if !seq.ReadASN1(&alias, asn1.UTF8String) {
			return nil, errors.New("malformed alias")
		}
		aux.Alias = string(alias)
	}
	if seq.PeekASN1Tag(asn1.OCTET_STRING) {
		var keyID cryptobyte.String
		if !seq.ReadASN1(&keyID, asn1.OCTET_STRING) {
			return nil, errors.New("malformed key id")
		}
		aux.KeyID = append([]byte(nil), keyID...)
	}
	if seq.PeekASN1Tag(tagAuxOther) {
		if !seq.SkipASN1(tagAuxOther) {
			return nil, errors.New("malformed other field")
		}
	}
	if !seq.Empty() {
		return nil, errors.New("trailing data in trust metadata")
	}
	return aux, nil
}

func readOIDList(s *cryptobyte.String, tag asn1.Tag) ([]encoding_asn1.ObjectIdentifier, error) {
	var list cryptobyte.String
	if !s.ReadASN1(&list, tag) {
		return nil, errors.New("malformed sequence")
	}
	var oids []encoding_asn1.ObjectIdentifier
	for !list.Empty() {
		var oid encoding_asn1.ObjectIdentifier
		if !list.ReadASN1ObjectIdentifier(&oid) {
			return nil, errors.New("malformed object identifier")
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

// Purpose names for the usage OIDs commonly found in trust lists.
var purposeNames = map[string]string{
	"1.3.6.1.5.5.7.3.1": "serverAuth",
	"1.3.6.1.5.5.7.3.2": "clientAuth",
	"1.3.6.1.5.5.7.3.3": "codeSigning",
	"1.3.6.1.5.5.7.3.4": "emailProtection",
	"1.3.6.1.5.5.7.3.8": "timeStamping",
	"2.5.29.37.0":       "anyExtendedKeyUsage",
}

// PurposeName returns a short name for a usage OID, or its dotted form.
func PurposeName(oid encoding_asn1.ObjectIdentifier) string {
	s := oid.String()
	if name, ok := purposeNames[s]; ok {
		return name
	}
	return s
}
