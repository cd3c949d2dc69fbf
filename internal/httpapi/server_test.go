package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/httpapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	positions   []domain.Position
	health      domain.HealthFactor
	healthErr   error
	alerts      []domain.RiskAlert
	ackErr      error
	stats       domain.Statistics
	simulation  domain.TradeSimulation
	simErr      error
	ackCalledID uuid.UUID
}

func (f *fakeEngine) ListPositions() []domain.Position { return f.positions }

func (f *fakeEngine) GetPosition(id uuid.UUID) (domain.Position, error) {
	for _, p := range f.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Position{}, &domain.PositionNotFoundError{ID: id}
}

func (f *fakeEngine) AddPosition(ctx context.Context, position domain.Position) (uuid.UUID, error) {
	f.positions = append(f.positions, position)
	return position.ID, nil
}

func (f *fakeEngine) RemovePosition(id uuid.UUID) error { return nil }

func (f *fakeEngine) GetPositionHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error) {
	return f.health, f.healthErr
}

func (f *fakeEngine) SimulateTradeImpact(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error) {
	return f.simulation, f.simErr
}

func (f *fakeEngine) GetAlerts(positionID *uuid.UUID) []domain.RiskAlert { return f.alerts }

func (f *fakeEngine) AcknowledgeAlert(alertID uuid.UUID) error {
	f.ackCalledID = alertID
	return f.ackErr
}

func (f *fakeEngine) GetStatistics() domain.Statistics { return f.stats }

func (f *fakeEngine) ExecutionHistory() []domain.ExecutionRecord { return nil }

func (f *fakeEngine) DailyStats() domain.DailyExecutionStats { return domain.DailyExecutionStats{} }

func (f *fakeEngine) RiskParameters() domain.RiskParameters { return domain.DefaultRiskParameters() }

func (f *fakeEngine) AutomationEnabled() bool { return true }

func newTestServer(f *fakeEngine) http.Handler {
	return httpapi.New(httpapi.Config{Port: 0, Engine: f, Log: zerolog.Nop(), DevMode: true}).Handler()
}

func TestHandleStats(t *testing.T) {
	f := &fakeEngine{stats: domain.Statistics{TotalPositions: 3, ActiveAlerts: 1, SupportedProtocols: []string{"aave"}}}
	srv := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalPositions)
}

func TestHandleGetPositionHealthNotFoundProtocol(t *testing.T) {
	f := &fakeEngine{healthErr: &domain.UnsupportedProtocolError{Protocol: "nope"}}
	srv := newTestServer(f)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/positions/"+id.String()+"/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleAcknowledgeAlert(t *testing.T) {
	f := &fakeEngine{}
	srv := newTestServer(f)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/alerts/"+id.String()+"/ack", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id, f.ackCalledID)
}

func TestHandleListPositions(t *testing.T) {
	f := &fakeEngine{positions: []domain.Position{{ID: uuid.New(), Protocol: "aave"}}}
	srv := newTestServer(f)

	req := httptest.NewRequest(http.MethodGet, "/api/positions/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Position
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "aave", got[0].Protocol)
}
