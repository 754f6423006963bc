package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusProcessed  TransactionStatus = "PROCESSED"
	StatusAlerted    TransactionStatus = "ALERTED"
	StatusReviewed   TransactionStatus = "REVIEWED"
)

// TransactionType represents the kind of money movement
type TransactionType string

const (
	TypeTransfer   TransactionType = "TRANSFER"
	TypePayment    TransactionType = "PAYMENT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeDeposit    TransactionType = "DEPOSIT"
)

// AccountField selects which side of a transaction an evaluator keys on
type AccountField string

const (
	AccountFieldFrom AccountField = "from"
	AccountFieldTo   AccountField = "to"
)

// ProcessingStep is a single append-only audit trail entry
type ProcessingStep struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Details   string    `json:"details"`
}

// Transaction represents a financial transaction moving through the pipeline.
// It is owned exclusively by the transaction processor during evaluation.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	CorrelationID string            `json:"correlation_id"`
	Amount        decimal.Decimal   `json:"amount"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Type          TransactionType   `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        TransactionStatus `json:"status"`
	MLScore       *float64          `json:"ml_score,omitempty"`
	AlertReasons  []string          `json:"alert_reasons,omitempty"`

	// ProcessingHistory is append-only; use AddProcessingStep
	ProcessingHistory []ProcessingStep `json:"processing_history,omitempty"`

	// Enrichment attributes consumed by evaluators
	IPAddress              string  `json:"ip_address,omitempty"`
	DeviceID               string  `json:"device_id,omitempty"`
	Location               string  `json:"location,omitempty"`
	MerchantCategory       string  `json:"merchant_category,omitempty"`
	PaymentChannel         string  `json:"payment_channel,omitempty"`
	PriorTransactionGapSec float64 `json:"prior_transaction_gap_sec,omitempty"`
	SpendingDeviationScore float64 `json:"spending_deviation_score,omitempty"`
	VelocityScore          float64 `json:"velocity_score,omitempty"`
	GeoAnomalyScore        float64 `json:"geo_anomaly_score,omitempty"`
}

// AddProcessingStep appends an audit entry to the processing history
func (t *Transaction) AddProcessingStep(step, details string) {
	t.ProcessingHistory = append(t.ProcessingHistory, ProcessingStep{
		Timestamp: time.Now(),
		Step:      step,
		Details:   details,
	})
}
