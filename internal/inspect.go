package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sensiblebit/ddscert"
)

// InspectResult holds the inspection details for one certificate URI.
type InspectResult struct {
	URI         string                `json:"uri"`
	Scheme      string                `json:"scheme"`
	Format      string                `json:"format"`
	Summary     string                `json:"summary"`
	Certificate ddscert.Description   `json:"certificate"`
	Chain       []ddscert.Description `json:"chain,omitempty"`
	Alias       string                `json:"alias,omitempty"`
	Trust       []string              `json:"trust,omitempty"`
	Reject      []string              `json:"reject,omitempty"`
}

// InspectURI loads the certificate named by uri and describes it.
func InspectURI(uri, password string, opts ...ddscert.LoadOption) (*InspectResult, error) {
	cert, err := ddscert.NewCertificate(uri, password, opts...)
	if err != nil {
		return nil, err
	}
	defer cert.Release()
	return inspectCertificate(cert), nil
}

func inspectCertificate(cert *ddscert.Certificate) *InspectResult {
	r := &InspectResult{
		URI:         cert.URI(),
		Scheme:      ddscert.Classify(cert.URI()).Scheme().String(),
		Format:      string(cert.Format()),
		Summary:     cert.Summary(),
		Certificate: ddscert.Describe(cert.X509()),
	}
	for _, c := range cert.Chain() {
		r.Chain = append(r.Chain, ddscert.Describe(c))
	}
	if aux := cert.Aux(); aux != nil {
		r.Alias = aux.Alias
		for _, oid := range aux.Trust {
			r.Trust = append(r.Trust, ddscert.PurposeName(oid))
		}
		for _, oid := range aux.Reject {
			r.Reject = append(r.Reject, ddscert.PurposeName(oid))
		}
	}
	return r
}

// FormatInspectResult formats an inspection result as text or JSON.
func FormatInspectResult(r *InspectResult, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(r), nil
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(r *InspectResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", r.Summary)
	fmt.Fprintf(&sb, "  URI:         %s\n", r.URI)
	fmt.Fprintf(&sb, "  Container:   %s\n", r.Format)
	writeDescription(&sb, r.Certificate)
	if r.Alias != "" {
		fmt.Fprintf(&sb, "  Alias:       %s\n", r.Alias)
	}
	if len(r.Trust) > 0 {
		fmt.Fprintf(&sb, "  Trusted for: %s\n", strings.Join(r.Trust, ", "))
	}
	if len(r.Reject) > 0 {
		fmt.Fprintf(&sb, "  Rejected:    %s\n", strings.Join(r.Reject, ", "))
	}
	for i, d := range r.Chain {
		fmt.Fprintf(&sb, "\nChain certificate %d:\n", i+1)
		writeDescription(&sb, d)
	}
	return sb.String()
}

func writeDescription(sb *strings.Builder, d ddscert.Description) {
	fmt.Fprintf(sb, "  Subject:     %s\n", d.Subject)
	fmt.Fprintf(sb, "  Issuer:      %s\n", d.Issuer)
	fmt.Fprintf(sb, "  Serial:      %s\n", d.Serial)
	fmt.Fprintf(sb, "  Type:        %s\n", d.CertType)
	fmt.Fprintf(sb, "  Not Before:  %s\n", d.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(sb, "  Not After:   %s\n", d.NotAfter.Format(time.RFC3339))
	fmt.Fprintf(sb, "  Key:         %s %s\n", d.KeyAlgo, d.KeySize)
	fmt.Fprintf(sb, "  Signature:   %s\n", d.SigAlg)
	fmt.Fprintf(sb, "  SHA-256:     %s\n", d.SHA256)
	fmt.Fprintf(sb, "  SHA-1:       %s\n", d.SHA1)
	if d.SKI != "" {
		fmt.Fprintf(sb, "  SKI:         %s\n", d.SKI)
	}
	if d.AKI != "" {
		fmt.Fprintf(sb, "  AKI:         %s\n", d.AKI)
	}
}
