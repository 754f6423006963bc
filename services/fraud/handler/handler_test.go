package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/metrics"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/internal/pkg/retry"
)

type fakeQueue struct {
	entries    []uuid.UUID
	enqueueErr error
	size       int64
}

func (f *fakeQueue) Enqueue(_ context.Context, txID uuid.UUID, _ string) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.entries = append(f.entries, txID)
	return nil
}

func (f *fakeQueue) Dequeue(_ context.Context) (*models.QueueMessage, error) { return nil, nil }
func (f *fakeQueue) Ack(_ context.Context, _ uuid.UUID) error               { return nil }
func (f *fakeQueue) Requeue(_ context.Context, _ *models.QueueMessage) error {
	return nil
}
func (f *fakeQueue) Size(_ context.Context) (int64, error) { return f.size, nil }

type fakeEngine struct {
	reloads   int
	reloadErr error
}

func (f *fakeEngine) Evaluate(_ context.Context, _ *models.Transaction) *models.EvaluationResult {
	return &models.EvaluationResult{}
}

func (f *fakeEngine) Reload(_ context.Context) error {
	f.reloads++
	return f.reloadErr
}

type fakeTxRepo struct {
	known  map[uuid.UUID]*models.Transaction
	counts map[models.TransactionStatus]int64
}

func (f *fakeTxRepo) GetTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, ok := f.known[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

func (f *fakeTxRepo) SaveTransaction(_ context.Context, _ *models.Transaction) error { return nil }

func (f *fakeTxRepo) FindByAccountAndTimeWindow(_ context.Context, _ models.AccountField, _ string, _, _ time.Time) ([]*models.Transaction, error) {
	return nil, nil
}

func (f *fakeTxRepo) CountByStatus(_ context.Context, status models.TransactionStatus) (int64, error) {
	return f.counts[status], nil
}

func newTestHandler(q *fakeQueue, eng *fakeEngine, repo *fakeTxRepo) *Handler {
	log := logger.NewNopLogger()
	retrier := retry.New(retry.Config{
		MaxRetries:    1,
		BaseDelay:     time.Millisecond,
		MaxDelay:      time.Millisecond,
		Multiplier:    1,
		RetryableFunc: func(error) bool { return true },
	}, log)
	return NewHandler(q, eng, repo, metrics.NewCollector(), retrier, log)
}

func performRequest(h echo.HandlerFunc, method, target, body string, pathParam ...string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(pathParam) == 2 {
		c.SetParamNames(pathParam[0])
		c.SetParamValues(pathParam[1])
	}
	return rec, h(c)
}

func TestHandler_EnqueueTransaction(t *testing.T) {
	txID := uuid.New()
	repo := &fakeTxRepo{known: map[uuid.UUID]*models.Transaction{txID: {ID: txID}}}
	q := &fakeQueue{}
	h := newTestHandler(q, &fakeEngine{}, repo)

	rec, err := performRequest(h.EnqueueTransaction, http.MethodPost,
		"/internal/transactions/"+txID.String()+"/enqueue",
		`{"correlation_id":"corr-77"}`, "id", txID.String())
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, q.entries, 1)
	assert.Equal(t, txID, q.entries[0])

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "corr-77", data["correlation_id"])
}

func TestHandler_EnqueueGeneratesCorrelationID(t *testing.T) {
	txID := uuid.New()
	repo := &fakeTxRepo{known: map[uuid.UUID]*models.Transaction{txID: {ID: txID}}}
	h := newTestHandler(&fakeQueue{}, &fakeEngine{}, repo)

	rec, err := performRequest(h.EnqueueTransaction, http.MethodPost,
		"/internal/transactions/"+txID.String()+"/enqueue", "", "id", txID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["correlation_id"])
}

func TestHandler_EnqueueInvalidID(t *testing.T) {
	h := newTestHandler(&fakeQueue{}, &fakeEngine{}, &fakeTxRepo{})

	rec, err := performRequest(h.EnqueueTransaction, http.MethodPost,
		"/internal/transactions/not-a-uuid/enqueue", "", "id", "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_EnqueueUnknownTransaction(t *testing.T) {
	h := newTestHandler(&fakeQueue{}, &fakeEngine{}, &fakeTxRepo{known: map[uuid.UUID]*models.Transaction{}})

	txID := uuid.New()
	rec, err := performRequest(h.EnqueueTransaction, http.MethodPost,
		"/internal/transactions/"+txID.String()+"/enqueue", "", "id", txID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_EnqueueFailureAfterRetries(t *testing.T) {
	txID := uuid.New()
	repo := &fakeTxRepo{known: map[uuid.UUID]*models.Transaction{txID: {ID: txID}}}
	q := &fakeQueue{enqueueErr: errors.New("redis down")}
	h := newTestHandler(q, &fakeEngine{}, repo)

	rec, err := performRequest(h.EnqueueTransaction, http.MethodPost,
		"/internal/transactions/"+txID.String()+"/enqueue", "", "id", txID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_ReloadRules(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandler(&fakeQueue{}, eng, &fakeTxRepo{})

	rec, err := performRequest(h.ReloadRules, http.MethodPost, "/internal/rules/reload", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, eng.reloads)
}

func TestHandler_ReloadRulesFailure(t *testing.T) {
	eng := &fakeEngine{reloadErr: errors.New("database down")}
	h := newTestHandler(&fakeQueue{}, eng, &fakeTxRepo{})

	rec, err := performRequest(h.ReloadRules, http.MethodPost, "/internal/rules/reload", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_QueueStats(t *testing.T) {
	repo := &fakeTxRepo{counts: map[models.TransactionStatus]int64{
		models.StatusProcessed: 12,
		models.StatusAlerted:   3,
	}}
	q := &fakeQueue{size: 7}
	h := newTestHandler(q, &fakeEngine{}, repo)

	rec, err := performRequest(h.QueueStats, http.MethodGet, "/internal/queue/stats", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(7), data["pending_depth"])

	counts := data["status_counts"].(map[string]interface{})
	assert.Equal(t, float64(12), counts["PROCESSED"])
	assert.Equal(t, float64(3), counts["ALERTED"])
	assert.Equal(t, float64(0), counts["PROCESSING"])
}
