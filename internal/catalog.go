package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/sensiblebit/ddscert"
	_ "modernc.org/sqlite"
)

// Identity roles recorded in the catalog.
const (
	RoleIdentityCA          = "identity_ca"
	RoleIdentityCertificate = "identity_certificate"
)

// Load outcomes recorded in the catalog.
const (
	StatusLoaded = "loaded"
	StatusFailed = "failed"
)

// IdentityRecord is one load attempt of a participant's identity material.
type IdentityRecord struct {
	Participant string         `db:"participant"`
	Role        string         `db:"role"`
	URI         string         `db:"uri"`
	Scheme      string         `db:"scheme"`
	Status      string         `db:"status"`
	ErrorKind   sql.NullString `db:"error_kind"`
	Error       sql.NullString `db:"error"`
	Format      sql.NullString `db:"format"`
	IsCA        bool           `db:"is_ca"`
	Subject     sql.NullString `db:"subject"`
	Issuer      sql.NullString `db:"issuer"`
	Fingerprint sql.NullString `db:"fingerprint"`
	NotAfter    *time.Time     `db:"not_after"`
	AuxJSON     types.JSONText `db:"aux"`
}

// auxRecord is the JSON shape stored in the aux column.
type auxRecord struct {
	Alias  string   `json:"alias,omitempty"`
	Trust  []string `json:"trust,omitempty"`
	Reject []string `json:"reject,omitempty"`
}

// NewIdentityRecord builds a catalog record from a load outcome. cert is
// ignored when err is non-nil.
func NewIdentityRecord(participant, role, uri string, cert *ddscert.Certificate, err error) IdentityRecord {
	rec := IdentityRecord{
		Participant: participant,
		Role:        role,
		URI:         uri,
		Scheme:      ddscert.Classify(uri).Scheme().String(),
		AuxJSON:     types.JSONText("{}"),
	}
	if err != nil || cert == nil || !cert.Loaded() {
		rec.Status = StatusFailed
		if err != nil {
			rec.ErrorKind = sql.NullString{String: ddscert.ErrorKind(err), Valid: true}
			rec.Error = sql.NullString{String: err.Error(), Valid: true}
		}
		return rec
	}

	x := cert.X509()
	notAfter := x.NotAfter.UTC()
	rec.Status = StatusLoaded
	rec.Format = sql.NullString{String: string(cert.Format()), Valid: true}
	rec.IsCA = cert.IsCA()
	rec.Subject = sql.NullString{String: x.Subject.String(), Valid: true}
	rec.Issuer = sql.NullString{String: x.Issuer.String(), Valid: true}
	rec.Fingerprint = sql.NullString{String: ddscert.CertFingerprint(x), Valid: true}
	rec.NotAfter = &notAfter

	if aux := cert.Aux(); aux != nil {
		ar := auxRecord{Alias: aux.Alias}
		for _, oid := range aux.Trust {
			ar.Trust = append(ar.Trust, ddscert.PurposeName(oid))
		}
		for _, oid := range aux.Reject {
			ar.Reject = append(ar.Reject, ddscert.PurposeName(oid))
		}
		if data, err := json.Marshal(ar); err == nil {
			rec.AuxJSON = types.JSONText(data)
		}
	}
	return rec
}

// Catalog is an in-memory SQLite record of identity load outcomes.
type Catalog struct {
	*sqlx.DB
}

// NewCatalog creates and initializes an in-memory catalog.
func NewCatalog() (*Catalog, error) {
	// Each :memory: connection is a separate database, so the pool is
	// pinned to one connection.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{DB: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("catalog initialized")
	return c, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.Exec(`
		CREATE TABLE IF NOT EXISTS identities (
			participant  text NOT NULL,
			role         text NOT NULL,
			uri          text NOT NULL,
			scheme       text NOT NULL,
			status       text NOT NULL,
			error_kind   text,
			error        text,
			format       text,
			is_ca        integer NOT NULL DEFAULT 0,
			subject      text,
			issuer       text,
			fingerprint  text,
			not_after    timestamp,
			aux          text,
			PRIMARY KEY(participant, role)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}
	return nil
}

// Record inserts or replaces the record for rec's participant and role.
func (c *Catalog) Record(rec IdentityRecord) error {
	_, err := c.NamedExec(`
		INSERT OR REPLACE INTO identities (participant, role, uri, scheme, status, error_kind, error, format, is_ca, subject, issuer, fingerprint, not_after, aux)
		VALUES (:participant, :role, :uri, :scheme, :status, :error_kind, :error, :format, :is_ca, :subject, :issuer, :fingerprint, :not_after, :aux)
	`, rec)
	if err != nil {
		return fmt.Errorf("recording identity: %w", err)
	}
	return nil
}

// All returns every record ordered by participant and role.
func (c *Catalog) All() ([]IdentityRecord, error) {
	var recs []IdentityRecord
	if err := c.Select(&recs, "SELECT * FROM identities ORDER BY participant, role"); err != nil {
		return nil, fmt.Errorf("getting identities: %w", err)
	}
	return recs, nil
}

// Failures returns the failed records ordered by participant and role.
func (c *Catalog) Failures() ([]IdentityRecord, error) {
	var recs []IdentityRecord
	if err := c.Select(&recs, "SELECT * FROM identities WHERE status = ? ORDER BY participant, role", StatusFailed); err != nil {
		return nil, fmt.Errorf("getting failures: %w", err)
	}
	return recs, nil
}

// CatalogSummary holds aggregate counts over the catalog.
type CatalogSummary struct {
	Participants int `json:"participants"`
	Loaded       int `json:"loaded"`
	Failed       int `json:"failed"`
	CAs          int `json:"cas"`
	Expired      int `json:"expired"`
	Distinct     int `json:"distinct_certificates"`
}

// Summary queries the catalog for aggregate counts. Records expiring before
// now are counted as expired.
func (c *Catalog) Summary(now time.Time) (*CatalogSummary, error) {
	s := &CatalogSummary{}

	if err := c.Get(&s.Participants, "SELECT COUNT(DISTINCT participant) FROM identities"); err != nil {
		return nil, fmt.Errorf("counting participants: %w", err)
	}
	if err := c.Get(&s.Loaded, "SELECT COUNT(*) FROM identities WHERE status = ?", StatusLoaded); err != nil {
		return nil, fmt.Errorf("counting loaded: %w", err)
	}
	if err := c.Get(&s.Failed, "SELECT COUNT(*) FROM identities WHERE status = ?", StatusFailed); err != nil {
		return nil, fmt.Errorf("counting failed: %w", err)
	}
	if err := c.Get(&s.CAs, "SELECT COUNT(*) FROM identities WHERE status = ? AND is_ca = 1", StatusLoaded); err != nil {
		return nil, fmt.Errorf("counting CAs: %w", err)
	}
	if err := c.Get(&s.Distinct, "SELECT COUNT(DISTINCT fingerprint) FROM identities WHERE fingerprint IS NOT NULL"); err != nil {
		return nil, fmt.Errorf("counting distinct certificates: %w", err)
	}

	// Expiry is compared in Go to avoid depending on the driver's
	// timestamp text layout.
	var expiries []time.Time
	if err := c.Select(&expiries, "SELECT not_after FROM identities WHERE not_after IS NOT NULL"); err != nil {
		return nil, fmt.Errorf("selecting expiries: %w", err)
	}
	for _, na := range expiries {
		if na.Before(now) {
			s.Expired++
		}
	}
	return s, nil
}

// SaveToDisk writes the in-memory catalog to a file at the given path.
func (c *Catalog) SaveToDisk(path string) error {
	if _, err := c.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("saving catalog to %s: %w", path, err)
	}
	slog.Info("catalog saved to disk", "path", path)
	return nil
}

// DumpCatalog logs every record at debug level.
func (c *Catalog) DumpCatalog() error {
	rows, err := c.Queryx("SELECT * FROM identities ORDER BY participant, role")
	if err != nil {
		return fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var rec IdentityRecord
		if err := rows.StructScan(&rec); err != nil {
			return fmt.Errorf("scanning identity: %w", err)
		}
		slog.Debug("identity record",
			"participant", rec.Participant,
			"role", rec.Role,
			"uri", rec.URI,
			"status", rec.Status,
			"error_kind", rec.ErrorKind.String,
			"is_ca", rec.IsCA,
			"subject", rec.Subject.String,
			"aux", string(rec.AuxJSON))
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating identities: %w", err)
	}
	slog.Debug("total identities", "count", count)
	return nil
}
