package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yieldvault/crypto"
	"yieldvault/native/vault"
)

var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

func parseIDParam(r *http.Request, name string) (vault.ID, error) {
	id, err := vault.ParseID(chi.URLParam(r, name))
	if err != nil {
		return vault.ID{}, badRequestf("invalid %s identifier", name)
	}
	return id, nil
}

func parseAddrParam(r *http.Request, name string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, name))
	if err != nil {
		return crypto.Address{}, badRequestf("invalid %s address: %v", name, err)
	}
	return addr, nil
}

type initVaultRequest struct {
	BasePointsRate uint64 `json:"basePointsRate"`
}

type initVaultResponse struct {
	VaultID string `json:"vaultId"`
	Custody string `json:"custody"`
}

func (s *Server) handleInitializeVault(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req initVaultRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	var vaultID vault.ID
	err = s.withEngine(func(eng *vault.Engine) error {
		var err error
		vaultID, err = eng.InitializeVault(caller, req.BasePointsRate)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("vault initialized", "vault", vaultID.Hex(), "authority", caller.String())
	writeJSON(w, http.StatusCreated, initVaultResponse{
		VaultID: vaultID.Hex(),
		Custody: vault.DeriveCustodyAddress(vaultID).String(),
	})
}

type updateVaultParamsRequest struct {
	VaultID        string `json:"vaultId"`
	BasePointsRate uint64 `json:"basePointsRate"`
	Paused         bool   `json:"paused"`
}

func (s *Server) handleUpdateVaultParams(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateVaultParamsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	vaultID, err := vault.ParseID(req.VaultID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid vault identifier"))
		return
	}
	err = s.withEngine(func(eng *vault.Engine) error {
		return eng.UpdateVaultParams(caller, vaultID, req.BasePointsRate, req.Paused)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("vault params updated", "vault", vaultID.Hex(), "rate", req.BasePointsRate, "paused", req.Paused)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerTokenRequest struct {
	VaultID       string `json:"vaultId"`
	Asset         string `json:"asset"`
	MultiplierBps uint16 `json:"multiplierBps"`
}

type registerTokenResponse struct {
	PoolID  string `json:"poolId"`
	Custody string `json:"custody"`
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req registerTokenRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	vaultID, err := vault.ParseID(req.VaultID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid vault identifier"))
		return
	}
	asset, err := crypto.DecodeAddress(req.Asset)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid asset address: %v", err))
		return
	}
	var poolID vault.ID
	err = s.withEngine(func(eng *vault.Engine) error {
		var err error
		poolID, err = eng.RegisterToken(caller, vaultID, asset, req.MultiplierBps)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("token registered", "vault", vaultID.Hex(), "pool", poolID.Hex(), "asset", asset.String(), "multiplierBps", req.MultiplierBps)
	writeJSON(w, http.StatusCreated, registerTokenResponse{
		PoolID:  poolID.Hex(),
		Custody: vault.DeriveCustodyAddress(vaultID).String(),
	})
}

type registerStrategyRequest struct {
	PoolID     string `json:"poolId"`
	StrategyID uint8  `json:"strategyId"`
	WeightBps  uint16 `json:"weightBps"`
	Keeper     string `json:"keeper,omitempty"`
}

func (s *Server) handleRegisterStrategy(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req registerStrategyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	poolID, err := vault.ParseID(req.PoolID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid pool identifier"))
		return
	}
	var keeper crypto.Address
	if req.Keeper != "" {
		if keeper, err = crypto.DecodeAddress(req.Keeper); err != nil {
			s.writeError(w, r, badRequestf("invalid keeper address: %v", err))
			return
		}
	}
	var recordID vault.ID
	err = s.withEngine(func(eng *vault.Engine) error {
		var err error
		recordID, err = eng.RegisterStrategy(caller, poolID, req.StrategyID, req.WeightBps, keeper)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("strategy registered", "pool", poolID.Hex(), "strategyId", req.StrategyID, "weightBps", req.WeightBps)
	writeJSON(w, http.StatusCreated, map[string]string{"strategyRecordId": recordID.Hex()})
}

type depositRequest struct {
	PoolID  string `json:"poolId"`
	Amount  uint64 `json:"amount"`
	Inviter string `json:"inviter,omitempty"`
}

type depositResponse struct {
	Shares uint64 `json:"shares"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	poolID, err := vault.ParseID(req.PoolID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid pool identifier"))
		return
	}
	var inviter crypto.Address
	if req.Inviter != "" {
		if inviter, err = crypto.DecodeAddress(req.Inviter); err != nil {
			s.writeError(w, r, badRequestf("invalid inviter address: %v", err))
			return
		}
	}

	vaultID, err := s.manager.PoolVault(poolID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params := vault.DepositParams{
		Pool:            poolID,
		User:            caller,
		Amount:          req.Amount,
		Inviter:         inviter,
		ReferralAccount: vault.DeriveReferralID(vaultID, caller),
	}
	// The inviter record binding is needed whenever an inviter is already
	// locked, not only when one is supplied on this deposit.
	inviterAccountFor := inviter
	if inviterAccountFor.IsZero() {
		err = s.viewEngine(func(eng *vault.Engine) error {
			rec, err := eng.Referral(vaultID, caller)
			if err != nil {
				return err
			}
			if rec.InviterLocked() {
				inviterAccountFor = rec.Inviter
			}
			return nil
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if !inviterAccountFor.IsZero() {
		id := vault.DeriveReferralID(vaultID, inviterAccountFor)
		params.InviterAccount = &id
	}

	var shares uint64
	err = s.withEngine(func(eng *vault.Engine) error {
		var err error
		shares, err = eng.Deposit(params)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	Metrics().deposits.Inc()
	s.logger.Info("deposit accepted", "pool", poolID.Hex(), "user", caller.String(), "amount", req.Amount, "shares", shares)
	writeJSON(w, http.StatusOK, depositResponse{Shares: shares})
}

type withdrawRequest struct {
	PoolID string `json:"poolId"`
	Amount uint64 `json:"amount"`
}

type withdrawResponse struct {
	Returned uint64 `json:"returned"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	poolID, err := vault.ParseID(req.PoolID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid pool identifier"))
		return
	}
	var returned uint64
	err = s.withEngine(func(eng *vault.Engine) error {
		var err error
		returned, err = eng.Withdraw(caller, poolID, req.Amount)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	Metrics().withdrawals.Inc()
	s.logger.Info("withdrawal accepted", "pool", poolID.Hex(), "user", caller.String(), "amount", req.Amount, "returned", returned)
	writeJSON(w, http.StatusOK, withdrawResponse{Returned: returned})
}

type harvestRequest struct {
	PoolID     string `json:"poolId"`
	StrategyID uint8  `json:"strategyId"`
	Yield      uint64 `json:"yield"`
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req harvestRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	poolID, err := vault.ParseID(req.PoolID)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid pool identifier"))
		return
	}
	err = s.withEngine(func(eng *vault.Engine) error {
		return eng.Harvest(caller, poolID, req.StrategyID, req.Yield)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	Metrics().harvests.Inc()
	s.logger.Info("harvest accepted", "pool", poolID.Hex(), "strategyId", req.StrategyID, "yield", req.Yield)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type faucetRequest struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// handleFaucet mints underlying to the caller. Development convenience; the
// ledger is node-local.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req faucetRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, badRequestf("%v", err))
		return
	}
	asset, err := crypto.DecodeAddress(req.Asset)
	if err != nil {
		s.writeError(w, r, badRequestf("invalid asset address: %v", err))
		return
	}
	if req.Amount == 0 {
		s.writeError(w, r, vault.ErrInvalidAmount)
		return
	}
	if err := s.manager.Mint(asset, caller, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type vaultResponse struct {
	VaultID        string `json:"vaultId"`
	Authority      string `json:"authority"`
	BasePointsRate uint64 `json:"basePointsRate"`
	Paused         bool   `json:"paused"`
	Custody        string `json:"custody"`
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	vaultID, err := parseIDParam(r, "vault")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var v *vault.Vault
	err = s.viewEngine(func(eng *vault.Engine) error {
		var err error
		v, err = eng.VaultInfo(vaultID)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vaultResponse{
		VaultID:        vaultID.Hex(),
		Authority:      v.Authority.String(),
		BasePointsRate: v.BasePointsRate,
		Paused:         v.Paused,
		Custody:        vault.DeriveCustodyAddress(vaultID).String(),
	})
}

type poolResponse struct {
	PoolID              string `json:"poolId"`
	VaultID             string `json:"vaultId"`
	Asset               string `json:"asset"`
	Custody             string `json:"custody"`
	TotalUnderlying     uint64 `json:"totalUnderlying"`
	TotalShares         uint64 `json:"totalShares"`
	PointsMultiplierBps uint16 `json:"pointsMultiplierBps"`
	PriceNumerator      uint64 `json:"priceNumerator"`
	PriceDenominator    uint64 `json:"priceDenominator"`
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := parseIDParam(r, "pool")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var pool *vault.AssetPool
	err = s.viewEngine(func(eng *vault.Engine) error {
		var err error
		pool, err = eng.Pool(poolID)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	num, den := pool.SharePriceRat()
	writeJSON(w, http.StatusOK, poolResponse{
		PoolID:              poolID.Hex(),
		VaultID:             pool.Vault.Hex(),
		Asset:               pool.Asset.String(),
		Custody:             pool.Custody.String(),
		TotalUnderlying:     pool.TotalUnderlying,
		TotalShares:         pool.TotalShares,
		PointsMultiplierBps: pool.PointsMultiplierBps,
		PriceNumerator:      num,
		PriceDenominator:    den,
	})
}

type positionResponse struct {
	PoolID           string `json:"poolId"`
	User             string `json:"user"`
	Shares           uint64 `json:"shares"`
	CumulativePoints string `json:"cumulativePoints"`
	LastPointsTs     int64  `json:"lastPointsTs"`
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	poolID, err := parseIDParam(r, "pool")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := parseAddrParam(r, "user")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var pos *vault.UserPosition
	err = s.viewEngine(func(eng *vault.Engine) error {
		if _, err := eng.Pool(poolID); err != nil {
			return err
		}
		var err error
		pos, err = eng.Position(poolID, user)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		PoolID:           poolID.Hex(),
		User:             user.String(),
		Shares:           pos.Shares,
		CumulativePoints: pos.CumulativePoints.String(),
		LastPointsTs:     pos.LastPointsTs,
	})
}

type referralResponse struct {
	VaultID           string `json:"vaultId"`
	User              string `json:"user"`
	Inviter           string `json:"inviter,omitempty"`
	PointsFromInvites string `json:"pointsFromInvites"`
}

func (s *Server) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	vaultID, err := parseIDParam(r, "vault")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := parseAddrParam(r, "user")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var rec *vault.ReferralRecord
	err = s.viewEngine(func(eng *vault.Engine) error {
		if _, err := eng.VaultInfo(vaultID); err != nil {
			return err
		}
		var err error
		rec, err = eng.Referral(vaultID, user)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referralResponse{
		VaultID:           vaultID.Hex(),
		User:              user.String(),
		Inviter:           rec.Inviter.String(),
		PointsFromInvites: rec.PointsFromInvites.String(),
	})
}

type strategyResponse struct {
	StrategyID    uint8  `json:"strategyId"`
	Authority     string `json:"authority"`
	WeightBps     uint16 `json:"weightBps"`
	LastHarvestTs int64  `json:"lastHarvestTs"`
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	poolID, err := parseIDParam(r, "pool")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var strategies []*vault.Strategy
	err = s.viewEngine(func(eng *vault.Engine) error {
		if _, err := eng.Pool(poolID); err != nil {
			return err
		}
		var err error
		strategies, err = eng.Strategies(poolID)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]strategyResponse, 0, len(strategies))
	for _, strat := range strategies {
		out = append(out, strategyResponse{
			StrategyID:    strat.StrategyID,
			Authority:     strat.Authority.String(),
			WeightBps:     strat.WeightBps,
			LastHarvestTs: strat.LastHarvestTs,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddrParam(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	holder, err := parseAddrParam(r, "holder")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.manager.Balance(asset, holder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}
