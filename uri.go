package ddscert

import (
	"fmt"
	"strings"
)

// Scheme identifies how the payload of a certificate URI is interpreted.
type Scheme int

const (
	// SchemeUnknown is any scheme token that is not recognized, including
	// URIs with no scheme delimiter at all.
	SchemeUnknown Scheme = iota
	// SchemeFile is "file:<path>".
	SchemeFile
	// SchemeData is "data:<inline encoded certificate>".
	SchemeData
	// SchemePKCS11 is "pkcs11:<token reference>".
	SchemePKCS11
)

const schemeDelimiter = ":"

// String returns the scheme token as it appears in a URI, or "unknown".
func (s Scheme) String() string {
	switch s {
	case SchemeFile:
		return "file"
	case SchemeData:
		return "data"
	case SchemePKCS11:
		return "pkcs11"
	default:
		return "unknown"
	}
}

// ParseScheme maps a scheme token to a Scheme. Matching is exact and
// case-sensitive; unrecognized tokens return SchemeUnknown and false.
func ParseScheme(token string) (Scheme, bool) {
	switch token {
	case "file":
		return SchemeFile, true
	case "data":
		return SchemeData, true
	case "pkcs11":
		return SchemePKCS11, true
	default:
		return SchemeUnknown, false
	}
}

// Location is the result of classifying a certificate URI. It is a closed
// set: FileLocation, DataLocation, TokenLocation and UnknownLocation are the
// only implementations.
type Location interface {
	// Scheme reports which variant this is.
	Scheme() Scheme
	// Payload returns the text following the scheme delimiter, unmodified.
	// For UnknownLocation it is the whole URI.
	Payload() string

	location()
}

// FileLocation names a certificate container on the filesystem.
type FileLocation struct {
	Path string
}

// DataLocation carries an inline encoded certificate.
type DataLocation struct {
	Data string
}

// TokenLocation references an object held by a hardware security token.
type TokenLocation struct {
	Ref string
}

// UnknownLocation is a URI whose scheme is not recognized.
type UnknownLocation struct {
	URI string
}

func (FileLocation) Scheme() Scheme    { return SchemeFile }
func (DataLocation) Scheme() Scheme    { return SchemeData }
func (TokenLocation) Scheme() Scheme   { return SchemePKCS11 }
func (UnknownLocation) Scheme() Scheme { return SchemeUnknown }

func (l FileLocation) Payload() string    { return l.Path }
func (l DataLocation) Payload() string    { return l.Data }
func (l TokenLocation) Payload() string   { return l.Ref }
func (l UnknownLocation) Payload() string { return l.URI }

func (FileLocation) location()    {}
func (DataLocation) location()    {}
func (TokenLocation) location()   {}
func (UnknownLocation) location() {}

// Classify splits a certificate URI at the first ':' and classifies it by
// the scheme token. It never fails: input without a recognized scheme is
// returned as UnknownLocation. No trimming or path normalization is done.
func Classify(uri string) Location {
	token, payload, found := strings.Cut(uri, schemeDelimiter)
	if !found {
		return UnknownLocation{URI: uri}
	}
	scheme, _ := ParseScheme(token)
	switch scheme {
	case SchemeFile:
		return FileLocation{Path: payload}
	case SchemeData:
		return DataLocation{Data: payload}
	case SchemePKCS11:
		return TokenLocation{Ref: payload}
	default:
		return UnknownLocation{URI: uri}
	}
}

// schemeToken returns the raw token before the delimiter, or "" when the URI
// has none. Used only to make error messages precise.
func schemeToken(uri string) string {
	token, _, found := strings.Cut(uri, schemeDelimiter)
	if !found {
		return ""
	}
	return token
}

// FormatLocation renders a Location as "scheme: payload" for diagnostics.
func FormatLocation(loc Location) string {
	return fmt.Sprintf("%s: %s", loc.Scheme(), loc.Payload())
}
