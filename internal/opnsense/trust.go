package opnsense

import (
	"context"
	"fmt"
	"time"
)

// Endpoints of the trust API (certificate authorities and certificates).
const (
	pathCASearch   = "/api/trust/ca/search"
	pathCAAdd      = "/api/trust/ca/add"
	pathCertSearch = "/api/trust/cert/search"
	pathCertAdd    = "/api/trust/cert/add"
	pathCertDel    = "/api/trust/cert/del/"
)

// validityLayouts covers the timestamp formats the trust API has been seen
// returning for valid_from / valid_to.
var validityLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseValidity(s string) time.Time {
	for _, layout := range validityLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CARow is one row of the certificate-authority listing. Certificate holds
// the authority's public certificate, base64-encoded PEM; the listing may
// omit it.
type CARow struct {
	UUID        string `json:"uuid"`
	RefID       string `json:"refid"`
	Description string `json:"descr"`
	ValidFrom   string `json:"valid_from"`
	ValidTo     string `json:"valid_to"`
	Certificate string `json:"crt"`
}

func (r CARow) Reference() (Reference, error) {
	return refFrom(r.RefID, r.UUID, "")
}

// ValidFromTime parses the validity start; the zero time when absent or
// unparseable.
func (r CARow) ValidFromTime() time.Time { return parseValidity(r.ValidFrom) }

// CertRow is one row of the certificate listing. PrivateKey is only present
// right after creation; the appliance may not return it on later queries.
type CertRow struct {
	UUID        string `json:"uuid"`
	RefID       string `json:"refid"`
	Description string `json:"descr"`
	CommonName  string `json:"commonname"`
	CARef       string `json:"caref"`
	ValidFrom   string `json:"valid_from"`
	ValidTo     string `json:"valid_to"`
	Certificate string `json:"crt"`
	PrivateKey  string `json:"prv"`
}

func (r CertRow) Reference() (Reference, error) {
	return refFrom(r.RefID, r.UUID, "")
}

func (r CertRow) ValidFromTime() time.Time { return parseValidity(r.ValidFrom) }

// CAPayload creates an internal certificate authority.
type CAPayload struct {
	Action       string `json:"action"`
	Description  string `json:"descr"`
	CommonName   string `json:"commonname"`
	LifetimeDays int    `json:"lifetime"`
	KeyType      string `json:"key_type,omitempty"`
	Digest       string `json:"digest,omitempty"`
}

// CertPayload creates an internal certificate signed by CARef. CertType is
// "server_cert" or "usr_cert".
type CertPayload struct {
	Action       string `json:"action"`
	Description  string `json:"descr"`
	CommonName   string `json:"commonname"`
	CARef        string `json:"caref"`
	CertType     string `json:"cert_type"`
	LifetimeDays int    `json:"lifetime"`
	KeyType      string `json:"key_type,omitempty"`
	Digest       string `json:"digest,omitempty"`
}

func (c *Client) SearchCAs(ctx context.Context) ([]CARow, error) {
	return search[CARow](ctx, c, pathCASearch)
}

func (c *Client) AddCA(ctx context.Context, p CAPayload) (*AddResult, error) {
	if p.Action == "" {
		p.Action = "internal"
	}
	return c.add(ctx, pathCAAdd, map[string]CAPayload{"ca": p})
}

func (c *Client) SearchCerts(ctx context.Context) ([]CertRow, error) {
	return search[CertRow](ctx, c, pathCertSearch)
}

func (c *Client) AddCert(ctx context.Context, p CertPayload) (*AddResult, error) {
	if p.Action == "" {
		p.Action = "internal"
	}
	return c.add(ctx, pathCertAdd, map[string]CertPayload{"cert": p})
}

// DeleteCert removes a certificate by UUID. Used only to prune superseded
// duplicates of a logical certificate; never to delete live resources.
func (c *Client) DeleteCert(ctx context.Context, uuid string) error {
	if uuid == "" {
		return fmt.Errorf("delete cert: empty uuid")
	}
	return c.post(ctx, pathCertDel+uuid, nil, nil)
}
