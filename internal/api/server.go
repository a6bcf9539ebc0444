package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"spawnpk-tradepost/internal/config"
	"spawnpk-tradepost/internal/db"
	"spawnpk-tradepost/internal/engine"
	"spawnpk-tradepost/internal/logger"
)

// Server is the HTTP API server that connects the trade session, analysis
// engine, and snapshot database.
type Server struct {
	settings *config.Settings
	shops    []config.ShopConfig
	session  *engine.Session
	db       *db.DB
	hub      *Hub
}

// NewServer creates a Server around the session and database.
func NewServer(settings *config.Settings, shops []config.ShopConfig, session *engine.Session, database *db.DB) *Server {
	return &Server{
		settings: settings,
		shops:    shops,
		session:  session,
		db:       database,
		hub:      NewHub(),
	}
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/opportunities", s.handleOpportunities)
	mux.HandleFunc("GET /api/bloodchanting", s.handleBloodchanting)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /api/shops", s.handleShops)
	mux.HandleFunc("GET /api/windows", s.handleWindows)
	mux.HandleFunc("GET /api/ws", s.hub.Handler())
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// windowParam reads and validates the ?window= query parameter,
// defaulting to the 7d window.
func windowParam(r *http.Request) (engine.Window, bool) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return engine.WindowWeek, true
	}
	w := engine.Window(strings.ToLower(raw))
	return w, w.Valid()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"refreshing":   s.session.Refreshing(),
		"data_loaded":  false,
		"total_trades": 0,
	}
	if ds := s.session.Current(); ds != nil {
		result["data_loaded"] = true
		result["total_trades"] = len(ds.Trades)
		result["captured_at"] = ds.CapturedAt.UTC().Format(time.RFC3339)
		result["fresh"] = ds.Fresh(s.settings.CacheExpiry(), time.Now())
	}
	writeJSON(w, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	summary, err := s.session.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if ds := s.session.Current(); ds != nil && s.db != nil {
		if err := s.db.SaveSnapshot(ds); err != nil {
			logger.Warn("API", "Snapshot save failed: "+err.Error())
		}
	}
	s.hub.Broadcast(map[string]interface{}{
		"event":   "refresh_complete",
		"summary": summary,
	})
	writeJSON(w, summary)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	window, ok := windowParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown window: "+r.URL.Query().Get("window"))
		return
	}
	opps, err := s.session.Opportunities(window)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if scenario := engine.Scenario(r.URL.Query().Get("sort")); scenario.Valid() {
		sortOpportunities(opps, scenario)
	}
	writeJSON(w, map[string]interface{}{
		"window":        window,
		"opportunities": opps,
	})
}

// sortOpportunities orders priced entries by ascending scenario cost,
// with unpriced entries trailing in their original order.
func sortOpportunities(opps []engine.ArbitrageOpportunity, scenario engine.Scenario) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.HasData() != b.HasData() {
			return a.HasData()
		}
		if !a.HasData() {
			return false
		}
		return a.Costs.ByScenario(scenario) < b.Costs.ByScenario(scenario)
	})
}

func (s *Server) handleBloodchanting(w http.ResponseWriter, r *http.Request) {
	window, ok := windowParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown window: "+r.URL.Query().Get("window"))
		return
	}
	results, err := s.session.Composite(window, engine.BloodchantingRecipe)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{
		"window":    window,
		"recipe":    engine.BloodchantingRecipe.Name,
		"scenarios": results,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.session.Dashboard()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, dashboard)
}

func (s *Server) handleShops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"shops": s.shops})
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{"windows": engine.Windows})
}
