// Package ddscert loads participant identity certificates referenced by URI
// for a secure publish/subscribe authentication layer. A Certificate holds a
// decoded certificate object with shared ownership: copies made with Clone
// or Assign share the object, which is dropped when the last holder calls
// Release.
package ddscert

import (
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/spf13/afero"
)

// NoCertificate is the summary of a Certificate that holds no object.
const NoCertificate = "NULL"

type loadState int

const (
	stateEmpty loadState = iota
	statePopulated
)

// Certificate is an identity certificate loaded from a URI. The zero value is
// an empty Certificate ready for Load.
//
// A Certificate is not safe for concurrent use; callers must serialize
// Load, Assign and Release on the same instance. Distinct instances sharing
// one object may be used from different goroutines.
//
// A Certificate must not be copied by value; use Clone or Assign. Query
// methods are safe on a nil *Certificate, which reports as empty.
type Certificate struct {
	noCopy noCopy

	uri   string
	state loadState
	h     *handle
}

// Observer is notified of every Load attempt that reaches scheme
// dispatch. dec is nil when err is non-nil.
type Observer interface {
	ObserveLoad(uri string, scheme Scheme, dec *Decoded, err error)
}

type loadConfig struct {
	fs        afero.Fs
	observer  Observer
	logger    *slog.Logger
	onRelease func(*Decoded)
}

// LoadOption configures a Load call.
type LoadOption func(*loadConfig)

// WithFS sets the filesystem used to resolve file: URIs. Defaults to the OS
// filesystem.
func WithFS(fs afero.Fs) LoadOption {
	return func(c *loadConfig) { c.fs = fs }
}

// WithObserver registers an observer for the load outcome.
func WithObserver(o Observer) LoadOption {
	return func(c *loadConfig) { c.observer = o }
}

// WithLogger sets the logger for debug-level load tracing. Defaults to a
// logger that discards everything.
func WithLogger(l *slog.Logger) LoadOption {
	return func(c *loadConfig) { c.logger = l }
}

// WithReleaseHook registers fn to run once the decoded object produced by
// this load has been released by its last holder.
func WithReleaseHook(fn func(*Decoded)) LoadOption {
	return func(c *loadConfig) { c.onRelease = fn }
}

func newLoadConfig(opts []LoadOption) *loadConfig {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return cfg
}

// NewCertificate creates a Certificate and loads it from uri. On error the
// returned Certificate is nil, which queries treat as empty.
func NewCertificate(uri, password string, opts ...LoadOption) (*Certificate, error) {
	c := &Certificate{}
	if err := c.Load(uri, password, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// Load resolves uri and decodes the certificate it names. A non-empty
// password is the container protection secret.
//
// If c already holds an object, Load returns nil without reading anything:
// the first successful load wins. On failure c stays empty and the error is
// an *UnsupportedSchemeError, *LoadError or *DecodeError.
func (c *Certificate) Load(uri, password string, opts ...LoadOption) error {
	if c.live() {
		return nil
	}

	cfg := newLoadConfig(opts)
	loc := Classify(uri)
	dec, err := resolve(cfg, loc, uri, password)
	if cfg.observer != nil {
		cfg.observer.ObserveLoad(uri, loc.Scheme(), dec, err)
	}
	if err != nil {
		cfg.logger.Debug("certificate load failed", "uri", uri, "scheme", loc.Scheme().String(), "error", err)
		return err
	}

	c.uri = uri
	c.h = newHandle(dec, cfg.onRelease)
	c.state = statePopulated
	cfg.logger.Debug("certificate loaded",
		"uri", uri,
		"format", string(dec.Format),
		"subject", dec.Cert.Subject.String(),
		"is_ca", certIsCA(dec.Cert))
	return nil
}

// resolve dispatches on the URI scheme and returns the decoded object.
func resolve(cfg *loadConfig, loc Location, uri, password string) (*Decoded, error) {
	switch l := loc.(type) {
	case FileLocation:
		return loadFile(cfg.fs, uri, l.Path, password)
	case DataLocation, TokenLocation, UnknownLocation:
		return nil, &UnsupportedSchemeError{Scheme: l.Scheme(), URI: uri}
	default:
		return nil, &UnsupportedSchemeError{Scheme: SchemeUnknown, URI: uri}
	}
}

// loadFile reads and decodes a certificate container from path. The file is
// closed on every return path.
func loadFile(fsys afero.Fs, uri, path, password string) (*Decoded, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &LoadError{URI: uri, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &LoadError{URI: uri, Path: path, Err: err}
	}

	dec, err := DecodeContainer(data, password)
	if err != nil {
		return nil, &DecodeError{URI: uri, Path: path, Err: err}
	}
	return dec, nil
}

// live reports whether c holds an object that has not been dropped. A
// handle dropped through another holder leaves c effectively empty.
func (c *Certificate) live() bool {
	return c != nil && c.state == statePopulated && c.h.alive()
}

// Loaded reports whether c holds a decoded object.
func (c *Certificate) Loaded() bool {
	return c.live()
}

// URI returns the URI c was loaded from, or "" when empty.
func (c *Certificate) URI() string {
	if !c.live() {
		return ""
	}
	return c.uri
}

func (c *Certificate) object() *Decoded {
	if !c.live() {
		return nil
	}
	return c.h.obj
}

// X509 returns the primary certificate, or nil when empty. The result is
// shared with every copy of c and must not be modified.
func (c *Certificate) X509() *x509.Certificate {
	if obj := c.object(); obj != nil {
		return obj.Cert
	}
	return nil
}

// Chain returns the additional certificates from the same container.
func (c *Certificate) Chain() []*x509.Certificate {
	if obj := c.object(); obj != nil {
		return obj.Chain
	}
	return nil
}

// Aux returns the container's auxiliary trust metadata, if any.
func (c *Certificate) Aux() *TrustAux {
	if obj := c.object(); obj != nil {
		return obj.Aux
	}
	return nil
}

// Format returns the container format, or "" when empty.
func (c *Certificate) Format() Format {
	if obj := c.object(); obj != nil {
		return obj.Format
	}
	return ""
}

// IsCA reports whether c holds a certificate whose basic constraints mark
// it as a certificate authority. An empty Certificate is not a CA.
func (c *Certificate) IsCA() bool {
	return certIsCA(c.X509())
}

// Summary returns a one-line description for logs, or NoCertificate when c
// is empty.
func (c *Certificate) Summary() string {
	if !c.Loaded() {
		return NoCertificate
	}
	isCA := "no"
	if c.IsCA() {
		isCA = "yes"
	}
	return fmt.Sprintf("Certificate: { is_ca? '%s'; }", isCA)
}

// String implements fmt.Stringer with Summary.
func (c *Certificate) String() string {
	return c.Summary()
}

// Refs returns the number of holders of c's object, or 0 when empty.
func (c *Certificate) Refs() int {
	if !c.live() {
		return 0
	}
	return int(c.h.count())
}

// Clone returns a new Certificate sharing c's object. Cloning an empty
// Certificate returns an empty one.
func (c *Certificate) Clone() *Certificate {
	if !c.live() {
		return &Certificate{}
	}
	h := c.h.acquire()
	if h == nil {
		return &Certificate{}
	}
	return &Certificate{uri: c.uri, state: statePopulated, h: h}
}

// Assign makes c share src's object, releasing whatever c held before.
// Assigning an empty or nil src empties c.
func (c *Certificate) Assign(src *Certificate) {
	if c == src {
		return
	}
	var (
		h   *handle
		uri string
	)
	if src.live() {
		if h = src.h.acquire(); h != nil {
			uri = src.uri
		}
	}
	c.Release()
	if h == nil {
		return
	}
	c.uri = uri
	c.h = h
	c.state = statePopulated
}

// Release drops c's hold on its object and leaves c empty. The object
// itself is released when its last holder calls Release. Calling Release on
// an empty Certificate does nothing.
func (c *Certificate) Release() {
	if c == nil || c.state != statePopulated {
		return
	}
	c.h.release()
	c.h = nil
	c.uri = ""
	c.state = stateEmpty
}
