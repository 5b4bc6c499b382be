package domain

// OrderRequest is a limit order ready for submission.
type OrderRequest struct {
	ClientOrderID string
	TokenID       string
	Side          Side
	Price         float64 // rounded to TickSize
	Shares        float64
	TickSize      float64
	NegRisk       bool
}

// OrderReceipt is the broker acknowledgement of a placed order.
type OrderReceipt struct {
	OrderID string
	Status  string
}

// Order status constants for OrderRecord.
const (
	OrderStatusPlaced   = "PLACED"
	OrderStatusFailed   = "FAILED"   // broker rejected or unreachable
	OrderStatusBlocked  = "BLOCKED"  // risk cap or pre-submit check
	OrderStatusDisabled = "DISABLED" // no trading credentials
)

// OrderRecord is the audit record of an execution attempt.
// Corresponds to copy_orders table in PostgreSQL.
type OrderRecord struct {
	ID            string  // client order id (uuid)
	Trader        string  // tracked wallet
	ConditionID   string  // market
	TokenID       string  // outcome token, empty if unresolved
	Side          Side    // BUY | SELL
	SizeUSD       float64 // after caps
	Shares        float64
	LimitPrice    float64
	TickSize      float64
	NegRisk       bool
	Status        string // PLACED | FAILED | BLOCKED | DISABLED
	BrokerOrderID string
	Error         string
	CreatedAt     int64 // Unix timestamp in milliseconds
}

// DecisionRecord is the audit record of one evaluation.
// Corresponds to copy_decisions table in PostgreSQL and decision_events in ClickHouse.
type DecisionRecord struct {
	ID              string // uuid
	Trader          string
	ConditionID     string
	TransactionHash string
	Side            Side
	Price           float64
	NotionalUSD     float64
	ShouldExecute   bool
	Code            ReasonCode
	Reason          string
	SizeKind        string  // none | absolute_usd | ratio_of_capital
	SizeValue       float64 // USD or fraction, per SizeKind
	NetExposureUSD  float64
	EquityUSD       float64
	AllocationPct   float64
	Dominance       float64
	EvaluatedAt     int64 // Unix timestamp in milliseconds
}

// APICredentials are L2 trading credentials for the order book API.
type APICredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Valid reports whether all parts are present.
func (c *APICredentials) Valid() bool {
	return c != nil && c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}
