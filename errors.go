package ddscert

import (
	"errors"
	"fmt"
)

// Sentinel kinds for errors.Is. Every error returned by Load matches exactly
// one of them.
var (
	ErrUnsupportedScheme = errors.New("ddscert: unsupported URI scheme")
	ErrIO                = errors.New("ddscert: I/O error")
	ErrDecode            = errors.New("ddscert: decode error")
)

// UnsupportedSchemeError is returned when a URI uses a scheme this package
// cannot load from (inline data, hardware tokens, or an unrecognized
// scheme).
type UnsupportedSchemeError struct {
	Scheme Scheme
	URI    string
}

func (e *UnsupportedSchemeError) Error() string {
	if e.Scheme == SchemeUnknown {
		if token := schemeToken(e.URI); token != "" {
			return fmt.Sprintf("unsupported URI scheme %q in certificate URI %q", token, e.URI)
		}
		return fmt.Sprintf("no URI scheme in certificate URI %q", e.URI)
	}
	return fmt.Sprintf("unsupported URI scheme %q in certificate URI %q", e.Scheme.String(), e.URI)
}

func (e *UnsupportedSchemeError) Is(target error) bool { return target == ErrUnsupportedScheme }

// LoadError reports that certificate bytes could not be read: the file could
// not be opened or its contents could not be read.
type LoadError struct {
	URI  string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("reading certificate file %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrIO }

// IOError is an alias for LoadError.
type IOError = LoadError

// DecodeError reports that bytes were read but do not hold a valid or
// decryptable certificate container.
type DecodeError struct {
	URI  string
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding certificate %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ErrorKind returns a short stable label for an error returned by Load:
// "unsupported_scheme", "io_error", "decode_error", "" for nil, or "other".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, ErrIO):
		return "io_error"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "other"
	}
}
