package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aegis-labs/aegis/internal/diagnostics"
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "aegis"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.GetStatistics())
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ListPositions())
}

type addPositionRequest struct {
	Protocol         string                                          `json:"protocol"`
	CollateralTokens map[domain.TokenAddress]domain.PositionToken `json:"collateral_tokens"`
	DebtTokens       map[domain.TokenAddress]domain.PositionToken `json:"debt_tokens"`
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	position := domain.Position{
		ID:               uuid.New(),
		Protocol:         req.Protocol,
		CollateralTokens: req.CollateralTokens,
		DebtTokens:       req.DebtTokens,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	id, err := s.engine.AddPosition(r.Context(), position)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePositionID(w, r)
	if !ok {
		return
	}
	position, err := s.engine.GetPosition(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, position)
}

func (s *Server) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePositionID(w, r)
	if !ok {
		return
	}
	if err := s.engine.RemovePosition(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPositionHealth(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePositionID(w, r)
	if !ok {
		return
	}
	health, err := s.engine.GetPositionHealth(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

type simulateTradeRequest struct {
	TradeType domain.TradeType      `json:"trade_type"`
	Token     domain.TokenAddress   `json:"token"`
	Amount    decimal.Decimal       `json:"amount"`
}

func (s *Server) handleSimulateTradeImpact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parsePositionID(w, r)
	if !ok {
		return
	}

	var req simulateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TradeType == "" {
		req.TradeType = domain.TradeTypePositionReduction
	}

	simulation, err := s.engine.SimulateTradeImpact(r.Context(), id, req.TradeType, req.Token, req.Amount)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, simulation)
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	var positionID *uuid.UUID
	if raw := r.URL.Query().Get("position_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid position_id")
			return
		}
		positionID = &id
	}
	s.writeJSON(w, http.StatusOK, s.engine.GetAlerts(positionID))
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if err := s.engine.AcknowledgeAlert(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecutionHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ExecutionHistory())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, diagnostics.Build(s.engine, s.engine.AutomationEnabled()))
}

func (s *Server) parsePositionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid position id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
