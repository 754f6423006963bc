package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jvmd/fraudguard/internal/pkg/models"
)

// TransactionRepo provides PostgreSQL-backed transaction persistence
type TransactionRepo struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// transactionDTO maps the transactions table row. JSON document columns are
// carried as raw bytes and decoded on the way out.
type transactionDTO struct {
	ID                     uuid.UUID       `db:"id"`
	CorrelationID          sql.NullString  `db:"correlation_id"`
	Amount                 decimal.Decimal `db:"amount"`
	FromAccount            string          `db:"from_account"`
	ToAccount              string          `db:"to_account"`
	Type                   string          `db:"type"`
	Timestamp              time.Time       `db:"timestamp"`
	Status                 string          `db:"status"`
	MLScore                sql.NullFloat64 `db:"ml_score"`
	AlertReasons           []byte          `db:"alert_reasons"`
	ProcessingHistory      []byte          `db:"processing_history"`
	IPAddress              sql.NullString  `db:"ip_address"`
	DeviceID               sql.NullString  `db:"device_id"`
	Location               sql.NullString  `db:"location"`
	MerchantCategory       sql.NullString  `db:"merchant_category"`
	PaymentChannel         sql.NullString  `db:"payment_channel"`
	PriorTransactionGapSec float64         `db:"prior_transaction_gap_sec"`
	SpendingDeviationScore float64         `db:"spending_deviation_score"`
	VelocityScore          float64         `db:"velocity_score"`
	GeoAnomalyScore        float64         `db:"geo_anomaly_score"`
}

func (dto *transactionDTO) toModel() (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:                     dto.ID,
		CorrelationID:          dto.CorrelationID.String,
		Amount:                 dto.Amount,
		From:                   dto.FromAccount,
		To:                     dto.ToAccount,
		Type:                   models.TransactionType(dto.Type),
		Timestamp:              dto.Timestamp,
		Status:                 models.TransactionStatus(dto.Status),
		IPAddress:              dto.IPAddress.String,
		DeviceID:               dto.DeviceID.String,
		Location:               dto.Location.String,
		MerchantCategory:       dto.MerchantCategory.String,
		PaymentChannel:         dto.PaymentChannel.String,
		PriorTransactionGapSec: dto.PriorTransactionGapSec,
		SpendingDeviationScore: dto.SpendingDeviationScore,
		VelocityScore:          dto.VelocityScore,
		GeoAnomalyScore:        dto.GeoAnomalyScore,
	}
	if dto.MLScore.Valid {
		score := dto.MLScore.Float64
		tx.MLScore = &score
	}
	if len(dto.AlertReasons) > 0 {
		if err := json.Unmarshal(dto.AlertReasons, &tx.AlertReasons); err != nil {
			return nil, fmt.Errorf("failed to decode alert reasons: %w", err)
		}
	}
	if len(dto.ProcessingHistory) > 0 {
		if err := json.Unmarshal(dto.ProcessingHistory, &tx.ProcessingHistory); err != nil {
			return nil, fmt.Errorf("failed to decode processing history: %w", err)
		}
	}
	return tx, nil
}

// GetTransaction retrieves a transaction by ID
func (r *TransactionRepo) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT id, correlation_id, amount, from_account, to_account, type,
			timestamp, status, ml_score, alert_reasons, processing_history,
			ip_address, device_id, location, merchant_category, payment_channel,
			prior_transaction_gap_sec, spending_deviation_score, velocity_score, geo_anomaly_score
		FROM transactions
		WHERE id = $1
	`

	var dto transactionDTO
	if err := r.db.GetContext(ctx, &dto, query, id); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return dto.toModel()
}

// SaveTransaction persists the full transaction state. The upsert overwrites
// any existing row, so reprocessing a duplicate delivery converges instead of
// appending.
func (r *TransactionRepo) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	alertReasons, err := json.Marshal(tx.AlertReasons)
	if err != nil {
		return fmt.Errorf("failed to encode alert reasons: %w", err)
	}
	history, err := json.Marshal(tx.ProcessingHistory)
	if err != nil {
		return fmt.Errorf("failed to encode processing history: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, correlation_id, amount, from_account, to_account, type,
			timestamp, status, ml_score, alert_reasons, processing_history,
			ip_address, device_id, location, merchant_category, payment_channel,
			prior_transaction_gap_sec, spending_deviation_score, velocity_score, geo_anomaly_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			correlation_id = EXCLUDED.correlation_id,
			status = EXCLUDED.status,
			ml_score = EXCLUDED.ml_score,
			alert_reasons = EXCLUDED.alert_reasons,
			processing_history = EXCLUDED.processing_history
	`

	_, err = r.db.ExecContext(ctx, query,
		tx.ID,
		nullString(tx.CorrelationID),
		tx.Amount,
		tx.From,
		tx.To,
		string(tx.Type),
		tx.Timestamp,
		string(tx.Status),
		nullFloat(tx.MLScore),
		alertReasons,
		history,
		nullString(tx.IPAddress),
		nullString(tx.DeviceID),
		nullString(tx.Location),
		nullString(tx.MerchantCategory),
		nullString(tx.PaymentChannel),
		tx.PriorTransactionGapSec,
		tx.SpendingDeviationScore,
		tx.VelocityScore,
		tx.GeoAnomalyScore,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// FindByAccountAndTimeWindow returns transactions keyed on the given account
// column whose timestamp falls within [start, end].
func (r *TransactionRepo) FindByAccountAndTimeWindow(ctx context.Context, field models.AccountField, account string, start, end time.Time) ([]*models.Transaction, error) {
	var column string
	switch field {
	case models.AccountFieldFrom:
		column = "from_account"
	case models.AccountFieldTo:
		column = "to_account"
	default:
		return nil, fmt.Errorf("unknown account field: %q", field)
	}

	query := fmt.Sprintf(`
		SELECT id, correlation_id, amount, from_account, to_account, type,
			timestamp, status, ml_score, alert_reasons, processing_history,
			ip_address, device_id, location, merchant_category, payment_channel,
			prior_transaction_gap_sec, spending_deviation_score, velocity_score, geo_anomaly_score
		FROM transactions
		WHERE %s = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`, column)

	var dtos []transactionDTO
	if err := r.db.SelectContext(ctx, &dtos, query, account, start, end); err != nil {
		return nil, fmt.Errorf("failed to query transactions for account %s: %w", account, err)
	}

	txs := make([]*models.Transaction, 0, len(dtos))
	for i := range dtos {
		tx, err := dtos[i].toModel()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// CountByStatus returns the number of transactions in the given status
func (r *TransactionRepo) CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions WHERE status = $1`, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions by status %s: %w", status, err)
	}
	return count, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
