package erpsync

// ============================================================================
// Result shape
// ============================================================================

// Result is the uniform outcome of every remote call. Transport failures are
// folded into the same shape: Success is false and Error carries a
// human-readable message. NotFound is set when the backend answered 404,
// which the sync layer treats as an idempotent success on delete paths.
type Result[T any] struct {
	Success  bool
	Data     T
	Error    string
	NotFound bool
}

// Unit is the payload of calls that return no body (deletes).
type Unit = struct{}

// Ok builds a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed result.
func Fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// ============================================================================
// Statuses
// ============================================================================

// PurchaseStatus is the lifecycle state of a purchase. Transitions are
// unrestricted.
type PurchaseStatus string

const (
	PurchaseDraft     PurchaseStatus = "Brouillon"
	PurchaseValidated PurchaseStatus = "Validé"
	PurchasePaid      PurchaseStatus = "Payé"
	PurchaseCancelled PurchaseStatus = "Annulé"
)

// PurchaseStatuses lists the purchase statuses in display order.
var PurchaseStatuses = []PurchaseStatus{
	PurchaseDraft, PurchaseValidated, PurchasePaid, PurchaseCancelled,
}

// LeadStatus is the pipeline state of a lead.
type LeadStatus string

const (
	LeadNew        LeadStatus = "Nouveau"
	LeadToContact  LeadStatus = "À contacter"
	LeadInProgress LeadStatus = "En cours"
	LeadQuoteSent  LeadStatus = "Devis envoyé"
	LeadWon        LeadStatus = "Gagné"
	LeadLost       LeadStatus = "Perdu"
)

// PipelineStatuses lists the lead statuses in pipeline column order. Grouping
// and KPI views preserve this order, not insertion order.
var PipelineStatuses = []LeadStatus{
	LeadNew, LeadToContact, LeadInProgress, LeadQuoteSent, LeadWon, LeadLost,
}

// ============================================================================
// Entities
// ============================================================================

// Purchase is a vendor purchase. AmountTTC is derived:
// round2(AmountHT * (1 + VATRate/100)) holds for every record at rest.
type Purchase struct {
	ID          string         `json:"id"`
	CompanyID   *string        `json:"companyId"`
	Vendor      string         `json:"vendor"`
	Reference   string         `json:"reference"`
	Description string         `json:"description,omitempty"`
	Date        string         `json:"date"`
	AmountHT    float64        `json:"amountHt"`
	VATRate     float64        `json:"vatRate"`
	AmountTTC   float64        `json:"amountTtc"`
	Category    string         `json:"category"`
	Status      PurchaseStatus `json:"status"`
	Recurring   bool           `json:"recurring"`
	Notes       string         `json:"notes,omitempty"`
	VehicleID   *string        `json:"vehicleId,omitempty"`
	Kilometers  *float64       `json:"kilometers,omitempty"`
}

func (p Purchase) EntityID() string { return p.ID }

// LeadActivity is one logged interaction on a lead.
type LeadActivity struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Note    string `json:"note"`
	LoggedAt string `json:"loggedAt"`
}

// Lead is a sales prospect.
type Lead struct {
	ID             string         `json:"id"`
	Company        string         `json:"company"`
	Contact        string         `json:"contact"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email"`
	Source         string         `json:"source"`
	Segment        string         `json:"segment"`
	Status         LeadStatus     `json:"status"`
	NextStepDate   *string        `json:"nextStepDate"`
	NextStepNote   string         `json:"nextStepNote"`
	LastContact    *string        `json:"lastContact"`
	EstimatedValue *float64       `json:"estimatedValue"`
	Owner          string         `json:"owner"`
	Tags           []string       `json:"tags"`
	Address        string         `json:"address,omitempty"`
	CompanyID      *string        `json:"companyId,omitempty"`
	SIRET          string         `json:"siret,omitempty"`
	ClientType     string         `json:"clientType,omitempty"`
	CreatedAt      string         `json:"createdAt"`
	Activities     []LeadActivity `json:"activities"`
}

func (l Lead) EntityID() string { return l.ID }

// Company is an owning company (tenant) record.
type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	SIRET   string `json:"siret,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

func (c Company) EntityID() string { return c.ID }

// Category is a catalog category. Categories form at most a two-level tree:
// roots have a nil ParentID, children point to a root. PriceHT and Surcharge
// only apply to children.
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Active      bool     `json:"active"`
	ParentID    *string  `json:"parentId"`
	PriceHT     *float64 `json:"priceHt,omitempty"`
	Surcharge   *float64 `json:"surcharge,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

func (c Category) EntityID() string { return c.ID }

// ServiceOption is one priced option of a catalog service.
type ServiceOption struct {
	ID                 string   `json:"id"`
	Label              string   `json:"label"`
	Description        string   `json:"description,omitempty"`
	DefaultDurationMin int      `json:"defaultDurationMin"`
	UnitPriceHT        float64  `json:"unitPriceHT"`
	TVAPct             *float64 `json:"tvaPct,omitempty"`
	Active             bool     `json:"active"`
}

// Service is a catalog service with its options.
type Service struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Options     []ServiceOption `json:"options"`
	Active      bool            `json:"active"`
}

func (s Service) EntityID() string { return s.ID }

// ============================================================================
// Company extensions
// ============================================================================

// CompanySettings carries per-company defaults applied to purchase forms.
type CompanySettings struct {
	VATEnabled bool    `json:"vatEnabled"`
	VATRate    float64 `json:"vatRate"`
}

// CompanyBackpack bundles the essential data of one company.
type CompanyBackpack struct {
	Company  Company            `json:"company"`
	Stats    map[string]float64 `json:"stats"`
	Settings CompanySettings    `json:"settings"`
}

// APIKeyData is returned by the API key generation endpoint.
type APIKeyData struct {
	APIKey string  `json:"apiKey"`
	Data   Company `json:"data"`
}
