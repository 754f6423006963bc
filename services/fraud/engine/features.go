package engine

import (
	"hash/fnv"
	"strings"

	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/shopspring/decimal"
)

// FeatureCount is the fixed length of the model input vector
const FeatureCount = 15

// amountDivisor normalizes transaction amounts into [0,1]
var amountDivisor = decimal.NewFromInt(1_000_000)

// ExtractFeatures builds the fixed-order numeric feature vector the scoring
// model expects. All features are in [0,1]; missing categorical values
// encode as 0.5.
func ExtractFeatures(tx *models.Transaction) []float64 {
	normalizedAmount, _ := tx.Amount.Div(amountDivisor).Float64()

	return []float64{
		clamp01(normalizedAmount),
		float64(tx.Timestamp.Hour()) / 24.0,
		normalizedWeekday(tx),
		hashEncode(tx.From),
		hashEncode(tx.To),
		typeEncode(tx.Type),
		hashEncode(tx.MerchantCategory),
		hashEncode(tx.DeviceID),
		hashEncode(tx.PaymentChannel),
		hashEncode(tx.Location),
		ipRiskScore(tx.IPAddress),
		clamp01(tx.PriorTransactionGapSec / 86400.0),
		clamp01(tx.SpendingDeviationScore),
		clamp01(tx.VelocityScore),
		clamp01(tx.GeoAnomalyScore),
	}
}

// normalizedWeekday maps Monday..Sunday onto [0,1]
func normalizedWeekday(tx *models.Transaction) float64 {
	weekday := int(tx.Timestamp.Weekday())
	if weekday == 0 { // time.Sunday
		weekday = 7
	}
	return float64(weekday-1) / 6.0
}

// hashEncode maps a categorical value into [0,1] using a hash that is
// stable across processes. Missing values encode as 0.5.
func hashEncode(value string) float64 {
	if value == "" {
		return 0.5
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return float64(h.Sum32()%1000) / 1000.0
}

func typeEncode(txType models.TransactionType) float64 {
	switch txType {
	case models.TypeTransfer:
		return 0.25
	case models.TypePayment:
		return 0.5
	case models.TypeWithdrawal:
		return 0.75
	case models.TypeDeposit:
		return 1.0
	default:
		return 0.5
	}
}

// ipRiskScore assigns a coarse risk weight to the originating address.
// Private-range addresses are internal traffic and score low.
func ipRiskScore(ip string) float64 {
	if ip == "" {
		return 0.5
	}
	if strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "172.") {
		return 0.1
	}
	return hashEncode(ip) * 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
