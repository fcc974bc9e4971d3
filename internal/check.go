package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sensiblebit/ddscert"
	"github.com/spf13/afero"
)

// CheckConfig holds the inputs of a participants check.
type CheckConfig struct {
	Participants []ParticipantConfig
	Catalog      *Catalog
	// Metrics is optional.
	Metrics *LoadMetrics
	// FS defaults to the OS filesystem.
	FS afero.Fs
	// Now is the reference time for expiry; defaults to time.Now().
	Now time.Time
}

// Problem is one reason a check did not pass.
type Problem struct {
	Participant string `json:"participant"`
	Role        string `json:"role"`
	URI         string `json:"uri"`
	Message     string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s (%s): %s", p.Participant, p.Role, p.URI, p.Message)
}

// CheckResult is the outcome of a participants check.
type CheckResult struct {
	Summary  *CatalogSummary
	Problems []Problem
	// SharedLoads counts loads served by sharing an already decoded
	// certificate instead of reading it again.
	SharedLoads int
}

type certKey struct {
	uri      string
	password string
}

type cachedLoad struct {
	cert *ddscert.Certificate
	err  error
}

// certCache shares decoded certificates between participants that reference
// the same URI with the same password.
type certCache struct {
	opts    []ddscert.LoadOption
	entries map[certKey]cachedLoad
	holders []*ddscert.Certificate
	shared  int
	metrics *LoadMetrics
}

func (c *certCache) load(uri, password string) (*ddscert.Certificate, error) {
	key := certKey{uri: uri, password: password}
	if e, ok := c.entries[key]; ok {
		if e.err != nil {
			return nil, e.err
		}
		c.shared++
		if c.metrics != nil {
			c.metrics.RecordShared()
		}
		clone := e.cert.Clone()
		c.holders = append(c.holders, clone)
		return clone, nil
	}

	cert, err := ddscert.NewCertificate(uri, password, c.opts...)
	c.entries[key] = cachedLoad{cert: cert, err: err}
	if err != nil {
		return nil, err
	}
	c.holders = append(c.holders, cert)
	return cert, nil
}

// release drops every holder; shared objects are freed with their last one.
func (c *certCache) release() {
	for _, h := range c.holders {
		h.Release()
	}
	c.holders = nil
}

// RunCheck loads every participant's identity CA and identity certificate,
// records the outcomes in the catalog and reports problems: failed loads,
// identity CAs that are not CAs and expired certificates.
func RunCheck(cfg *CheckConfig) (*CheckResult, error) {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	opts := []ddscert.LoadOption{ddscert.WithLogger(slog.Default())}
	if cfg.FS != nil {
		opts = append(opts, ddscert.WithFS(cfg.FS))
	}
	if cfg.Metrics != nil {
		opts = append(opts, ddscert.WithObserver(cfg.Metrics))
	}
	cache := &certCache{
		opts:    opts,
		entries: make(map[certKey]cachedLoad),
		metrics: cfg.Metrics,
	}
	defer cache.release()

	result := &CheckResult{}
	for _, p := range cfg.Participants {
		roles := []struct {
			role string
			uri  string
		}{
			{RoleIdentityCA, p.IdentityCA},
			{RoleIdentityCertificate, p.IdentityCertificate},
		}
		for _, r := range roles {
			cert, err := cache.load(r.uri, p.Password)
			if err := cfg.Catalog.Record(NewIdentityRecord(p.Name, r.role, r.uri, cert, err)); err != nil {
				return nil, err
			}

			problem := Problem{Participant: p.Name, Role: r.role, URI: r.uri}
			switch {
			case err != nil:
				slog.Warn("loading identity", "participant", p.Name, "role", r.role, "uri", r.uri, "error", err)
				problem.Message = err.Error()
			case r.role == RoleIdentityCA && !cert.IsCA():
				problem.Message = "identity CA is not a CA certificate"
			case cert.X509().NotAfter.Before(now):
				problem.Message = fmt.Sprintf("expired %s", cert.X509().NotAfter.UTC().Format(time.RFC3339))
			default:
				slog.Debug("identity loaded", "participant", p.Name, "role", r.role, "summary", cert.Summary())
				continue
			}
			result.Problems = append(result.Problems, problem)
		}
	}
	result.SharedLoads = cache.shared

	summary, err := cfg.Catalog.Summary(now)
	if err != nil {
		return nil, fmt.Errorf("generating summary: %w", err)
	}
	result.Summary = summary
	return result, nil
}
