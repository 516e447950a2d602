package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yieldvault/core/events"
	"yieldvault/core/state"
	"yieldvault/crypto"
	"yieldvault/native/vault"
)

// callerHeader carries the bech32 identity the request acts as. The node
// trusts its deployment perimeter for authentication; the header only
// establishes which identity the operation runs under.
const callerHeader = "X-Caller"

// Config captures the dependencies required to construct the server.
type Config struct {
	Manager          *state.Manager
	Logger           *slog.Logger
	Emitter          events.Emitter
	ReferralBonusBps uint16
	Now              func() int64
}

// Server exposes the vault operations over HTTP.
type Server struct {
	manager  *state.Manager
	logger   *slog.Logger
	emitter  events.Emitter
	bonusBps uint16
	now      func() int64

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) *Server {
	srv := &Server{
		manager:  cfg.Manager,
		logger:   cfg.Logger,
		emitter:  cfg.Emitter,
		bonusBps: cfg.ReferralBonusBps,
		now:      cfg.Now,
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	if srv.emitter == nil {
		srv.emitter = events.NoopEmitter{}
	}
	if srv.now == nil {
		srv.now = func() int64 { return time.Now().Unix() }
	}
	if srv.bonusBps == 0 {
		srv.bonusBps = vault.DefaultReferralBonusBps
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Post("/vault/init", s.instrument("vault_init", s.handleInitializeVault))
		api.Post("/vault/params", s.instrument("vault_params", s.handleUpdateVaultParams))
		api.Post("/token/register", s.instrument("token_register", s.handleRegisterToken))
		api.Post("/strategy/register", s.instrument("strategy_register", s.handleRegisterStrategy))
		api.Post("/deposit", s.instrument("deposit", s.handleDeposit))
		api.Post("/withdraw", s.instrument("withdraw", s.handleWithdraw))
		api.Post("/harvest", s.instrument("harvest", s.handleHarvest))
		api.Post("/faucet", s.instrument("faucet", s.handleFaucet))

		api.Get("/vault/{vault}", s.instrument("vault_get", s.handleGetVault))
		api.Get("/vault/{vault}/referral/{user}", s.instrument("referral_get", s.handleGetReferral))
		api.Get("/pool/{pool}", s.instrument("pool_get", s.handleGetPool))
		api.Get("/pool/{pool}/position/{user}", s.instrument("position_get", s.handleGetPosition))
		api.Get("/pool/{pool}/strategies", s.instrument("strategies_get", s.handleListStrategies))
		api.Get("/balance/{asset}/{holder}", s.instrument("balance_get", s.handleGetBalance))
	})
	return r
}

// withEngine runs fn with a transaction-scoped engine; the transaction
// commits only when fn succeeds.
func (s *Server) withEngine(fn func(eng *vault.Engine) error) error {
	return s.manager.Execute(func(txn *state.Txn) error {
		return fn(s.newEngine(txn))
	})
}

// viewEngine runs fn with a read-only engine over committed state.
func (s *Server) viewEngine(fn func(eng *vault.Engine) error) error {
	return s.manager.View(func(txn *state.Txn) error {
		return fn(s.newEngine(txn))
	})
}

func (s *Server) newEngine(txn *state.Txn) *vault.Engine {
	eng := vault.NewEngine()
	eng.SetState(txn)
	eng.SetLedger(txn)
	eng.SetEmitter(s.emitter)
	eng.SetNowFunc(s.now)
	eng.SetReferralBonusBps(s.bonusBps)
	return eng
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		m := Metrics()
		outcome := "ok"
		if rec.status >= 400 {
			outcome = "error"
			m.errors.WithLabelValues(operation, http.StatusText(rec.status)).Inc()
		}
		m.requests.WithLabelValues(operation, outcome).Inc()
		m.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// caller resolves the acting identity from the request header.
func (s *Server) caller(r *http.Request) (crypto.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(callerHeader))
	if raw == "" {
		return crypto.Address{}, errMissingCaller
	}
	return crypto.DecodeAddress(raw)
}

var errMissingCaller = errors.New("missing " + callerHeader + " header")

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, vault.ErrVaultNotFound),
		errors.Is(err, vault.ErrPoolNotFound),
		errors.Is(err, vault.ErrStrategyNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrVaultExists),
		errors.Is(err, vault.ErrPoolExists),
		errors.Is(err, vault.ErrStrategyExists),
		errors.Is(err, vault.ErrVaultPaused),
		errors.Is(err, vault.ErrInviterLocked):
		return http.StatusConflict
	case errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidMultiplier),
		errors.Is(err, vault.ErrZeroShares),
		errors.Is(err, vault.ErrInsufficientShares),
		errors.Is(err, vault.ErrInvalidInviter),
		errors.Is(err, vault.ErrInviterAccountMissing),
		errors.Is(err, vault.ErrUnexpectedInviterAccount),
		errors.Is(err, vault.ErrInvalidReferralAccount),
		errors.Is(err, vault.ErrInvalidID),
		errors.Is(err, vault.ErrMathOverflow),
		errors.Is(err, state.ErrInsufficientFunds),
		errors.Is(err, errMissingCaller):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrAccountSerialization):
		return http.StatusInternalServerError
	default:
		var syntax *json.SyntaxError
		var unmarshal *json.UnmarshalTypeError
		if errors.As(err, &syntax) || errors.As(err, &unmarshal) || errors.Is(err, errBadRequest) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
