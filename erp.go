// Package erpsync is the Go client for the Wash&Go ERP REST backend.
//
// It keeps a local in-memory copy of each entity collection (purchases,
// leads, companies, catalog), applies user mutations optimistically, and
// reconciles with the server's canonical records, rolling back or
// resynchronizing when a remote call fails.
//
// Example:
//
//	client := erpsync.NewClient("https://erp.example.com/api",
//		erpsync.WithToken(token))
//
//	purchases := erpsync.NewSyncController(erpsync.NewStore[erpsync.Purchase](),
//		client.Purchases(), erpsync.WithLabel("achat"))
//
//	purchases.Refresh(ctx)
//	outcome := purchases.Delete(ctx, id)
package erpsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the reverse-proxied API root used in production.
	DefaultBaseURL = "/api"

	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the low-level REST client. Per-entity sub-clients hang off it via
// the accessor methods (Purchases, Leads, ...).
type Client struct {
	baseURL    string
	token      string
	companyID  string
	httpClient *http.Client
	log        zerolog.Logger

	purchases  *PurchasesClient
	leads      *LeadsClient
	companies  *CompaniesClient
	categories *CategoriesClient
	services   *ServicesClient
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithActiveCompany sets the company scoping every request (X-Company-Id).
func WithActiveCompany(companyID string) ClientOption {
	return func(c *Client) { c.companyID = companyID }
}

// WithLogger enables structured request and sync logging. The default logger
// discards everything.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client for the given API root.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: zerolog.Nop(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}

	for _, opt := range opts {
		opt(c)
	}

	c.purchases = &PurchasesClient{c: c}
	c.leads = &LeadsClient{c: c}
	c.companies = &CompaniesClient{c: c}
	c.categories = &CategoriesClient{c: c}
	c.services = &ServicesClient{c: c}
	return c
}

// SetToken replaces the bearer token, e.g. after a login or refresh.
func (c *Client) SetToken(token string) { c.token = token }

// SetActiveCompany switches the company scope of subsequent requests.
func (c *Client) SetActiveCompany(companyID string) { c.companyID = companyID }

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger { return c.log }

func (c *Client) Purchases() *PurchasesClient   { return c.purchases }
func (c *Client) Leads() *LeadsClient           { return c.leads }
func (c *Client) Companies() *CompaniesClient   { return c.companies }
func (c *Client) Categories() *CategoriesClient { return c.categories }
func (c *Client) Services() *ServicesClient     { return c.services }

// ============================================================================
// Internal request helpers
// ============================================================================

// errorBody is the backend's error payload (FastAPI-style detail field).
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, query map[string]string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.companyID != "" {
		req.Header.Set("X-Company-Id", c.companyID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	return resp.StatusCode, data, nil
}

// doJSON performs a request and folds transport and HTTP errors into the
// Result shape. A 404 sets NotFound so delete paths can treat it as an
// idempotent success.
func doJSON[T any](c *Client, ctx context.Context, method, path string, body any, query map[string]string) Result[T] {
	status, data, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return Fail[T]("Impossible de contacter le serveur. Vérifiez la connexion.")
	}

	if status == http.StatusNotFound {
		return Result[T]{Error: "Ressource non trouvée (404)", NotFound: true}
	}
	if status < 200 || status >= 300 {
		return Fail[T](httpErrorMessage(status, data))
	}

	var result T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return Fail[T](fmt.Sprintf("Réponse illisible du serveur (HTTP %d)", status))
		}
	}
	return Ok(result)
}

func httpErrorMessage(status int, data []byte) string {
	detail := ""
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && len(eb.Detail) > 0 {
		var s string
		if json.Unmarshal(eb.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(eb.Detail)
		}
	}

	switch status {
	case http.StatusUnprocessableEntity:
		if detail != "" {
			return "Erreur de validation des données (422): " + detail
		}
		return "Erreur de validation des données (422)"
	case http.StatusConflict:
		if detail != "" {
			return detail
		}
		return "Cette ressource existe déjà (409)"
	case http.StatusInternalServerError:
		return "Erreur serveur interne (500)"
	default:
		if detail != "" {
			return fmt.Sprintf("HTTP %d: %s", status, detail)
		}
		return fmt.Sprintf("HTTP %d", status)
	}
}

// ============================================================================
// Per-entity sub-clients
// ============================================================================

// RemoteService is the minimal remote contract the sync controller drives.
type RemoteService[T Entity] interface {
	GetAll(ctx context.Context) Result[[]T]
	Create(ctx context.Context, payload T) Result[T]
	Update(ctx context.Context, id string, payload T) Result[T]
	Delete(ctx context.Context, id string) Result[Unit]
}

// PurchasesClient accesses /purchases/.
type PurchasesClient struct{ c *Client }

func (p *PurchasesClient) GetAll(ctx context.Context) Result[[]Purchase] {
	return doJSON[[]Purchase](p.c, ctx, "GET", "/purchases/", nil, nil)
}

func (p *PurchasesClient) GetByID(ctx context.Context, id string) Result[Purchase] {
	return doJSON[Purchase](p.c, ctx, "GET", "/purchases/"+id, nil, nil)
}

func (p *PurchasesClient) Create(ctx context.Context, payload Purchase) Result[Purchase] {
	return doJSON[Purchase](p.c, ctx, "POST", "/purchases/", payload, nil)
}

func (p *PurchasesClient) Update(ctx context.Context, id string, payload Purchase) Result[Purchase] {
	return doJSON[Purchase](p.c, ctx, "PUT", "/purchases/"+id, payload, nil)
}

func (p *PurchasesClient) Delete(ctx context.Context, id string) Result[Unit] {
	return doJSON[Unit](p.c, ctx, "DELETE", "/purchases/"+id, nil, nil)
}

// LeadsClient accesses /leads/.
type LeadsClient struct{ c *Client }

func (l *LeadsClient) GetAll(ctx context.Context) Result[[]Lead] {
	return doJSON[[]Lead](l.c, ctx, "GET", "/leads/", nil, nil)
}

func (l *LeadsClient) Create(ctx context.Context, payload Lead) Result[Lead] {
	return doJSON[Lead](l.c, ctx, "POST", "/leads/", payload, nil)
}

// Update updates a lead. When the backend answers 404 the lead is re-created:
// an edit to a prospect deleted from another session wins over the deletion.
func (l *LeadsClient) Update(ctx context.Context, id string, payload Lead) Result[Lead] {
	result := doJSON[Lead](l.c, ctx, "PUT", "/leads/"+id, payload, nil)
	if !result.Success && result.NotFound {
		return l.Create(ctx, payload)
	}
	return result
}

func (l *LeadsClient) Delete(ctx context.Context, id string) Result[Unit] {
	return doJSON[Unit](l.c, ctx, "DELETE", "/leads/"+id, nil, nil)
}

// Transfer moves a lead to another owning company.
func (l *LeadsClient) Transfer(ctx context.Context, id, targetCompanyID string) Result[Lead] {
	return doJSON[Lead](l.c, ctx, "POST", "/leads/"+id+"/transfer",
		map[string]string{"targetCompanyId": targetCompanyID}, nil)
}

// CompaniesClient accesses /companies/.
type CompaniesClient struct{ c *Client }

func (co *CompaniesClient) GetAll(ctx context.Context) Result[[]Company] {
	return doJSON[[]Company](co.c, ctx, "GET", "/companies/", nil, nil)
}

func (co *CompaniesClient) GetByID(ctx context.Context, id string) Result[Company] {
	return doJSON[Company](co.c, ctx, "GET", "/companies/"+id, nil, nil)
}

func (co *CompaniesClient) Create(ctx context.Context, payload Company) Result[Company] {
	return doJSON[Company](co.c, ctx, "POST", "/companies/", payload, nil)
}

func (co *CompaniesClient) Update(ctx context.Context, id string, payload Company) Result[Company] {
	return doJSON[Company](co.c, ctx, "PUT", "/companies/"+id, payload, nil)
}

func (co *CompaniesClient) Delete(ctx context.Context, id string) Result[Unit] {
	return doJSON[Unit](co.c, ctx, "DELETE", "/companies/"+id, nil, nil)
}

// GenerateAPIKey generates or rotates the company's API key.
func (co *CompaniesClient) GenerateAPIKey(ctx context.Context, id string) Result[APIKeyData] {
	return doJSON[APIKeyData](co.c, ctx, "POST", "/companies/"+id+"/generate-api-key",
		map[string]string{}, nil)
}

// GetBackpack fetches the per-company settings and stats bundle.
func (co *CompaniesClient) GetBackpack(ctx context.Context, companyID string) Result[CompanyBackpack] {
	return doJSON[CompanyBackpack](co.c, ctx, "GET", "/company/backpack", nil,
		map[string]string{"companyId": companyID})
}

// CategoriesClient accesses /categories/.
type CategoriesClient struct{ c *Client }

func (ca *CategoriesClient) GetAll(ctx context.Context) Result[[]Category] {
	return doJSON[[]Category](ca.c, ctx, "GET", "/categories/", nil, nil)
}

func (ca *CategoriesClient) Create(ctx context.Context, payload Category) Result[Category] {
	return doJSON[Category](ca.c, ctx, "POST", "/categories/", payload, nil)
}

func (ca *CategoriesClient) Update(ctx context.Context, id string, payload Category) Result[Category] {
	return doJSON[Category](ca.c, ctx, "PUT", "/categories/"+id, payload, nil)
}

func (ca *CategoriesClient) Delete(ctx context.Context, id string) Result[Unit] {
	return doJSON[Unit](ca.c, ctx, "DELETE", "/categories/"+id, nil, nil)
}

// ServicesClient accesses /services/.
type ServicesClient struct{ c *Client }

func (sv *ServicesClient) GetAll(ctx context.Context) Result[[]Service] {
	return doJSON[[]Service](sv.c, ctx, "GET", "/services/", nil, nil)
}

func (sv *ServicesClient) Create(ctx context.Context, payload Service) Result[Service] {
	return doJSON[Service](sv.c, ctx, "POST", "/services/", payload, nil)
}

func (sv *ServicesClient) Update(ctx context.Context, id string, payload Service) Result[Service] {
	return doJSON[Service](sv.c, ctx, "PUT", "/services/"+id, payload, nil)
}

func (sv *ServicesClient) Delete(ctx context.Context, id string) Result[Unit] {
	return doJSON[Unit](sv.c, ctx, "DELETE", "/services/"+id, nil, nil)
}
