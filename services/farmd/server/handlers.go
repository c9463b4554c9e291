package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"

	"bondfarm/core"
	"bondfarm/core/types"
	"bondfarm/crypto"
	"bondfarm/native/bond"
	"bondfarm/native/farm"
	"bondfarm/native/swap"
)

const defaultEventLimit = 100

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "envelope too large", Code: "too_large"})
			return
		}
		s.badRequest(w, "read body")
		return
	}
	var env types.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.badRequest(w, "invalid envelope")
		return
	}
	receipt, err := s.node.Submit(r.Context(), &env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"operations": core.Operations()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.badRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	recent := s.recorder.Recent()
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	if recent == nil {
		recent = []*types.Event{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"events": recent})
}

func (s *Server) addressParam(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(trimParam(r, "address"))
	if err != nil || addr.IsZero() {
		s.badRequest(w, "invalid address")
		return crypto.Address{}, false
	}
	return addr, true
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r)
	if !ok {
		return
	}
	nonce, err := s.node.AccountNonce(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"address": addr, "nonce": nonce})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r)
	if !ok {
		return
	}
	asset := trimParam(r, "asset")
	amount, err := s.node.Balance(r.Context(), asset, addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"address": addr, "asset": asset, "amount": amount})
}

func (s *Server) handlePaused(w http.ResponseWriter, r *http.Request) {
	module := trimParam(r, "module")
	paused, err := s.node.Paused(r.Context(), module)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"module": module, "paused": paused})
}

type swapPoolView struct {
	ID       string         `json:"id"`
	AssetA   string         `json:"assetA"`
	AssetB   string         `json:"assetB"`
	FeeBps   uint64         `json:"feeBps"`
	Vault    crypto.Address `json:"vault"`
	ReserveA uint64         `json:"reserveA"`
	ReserveB uint64         `json:"reserveB"`
}

func newSwapPoolView(p *swap.Pool, reserveA, reserveB uint64) swapPoolView {
	return swapPoolView{
		ID:       p.ID,
		AssetA:   p.AssetA,
		AssetB:   p.AssetB,
		FeeBps:   p.FeeBps,
		Vault:    p.Vault,
		ReserveA: reserveA,
		ReserveB: reserveB,
	}
}

func (s *Server) handleSwapPool(w http.ResponseWriter, r *http.Request) {
	pool, reserveA, reserveB, err := s.node.SwapPool(r.Context(), trimParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSwapPoolView(pool, reserveA, reserveB))
}

func (s *Server) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount, err := strconv.ParseUint(query.Get("amount"), 10, 64)
	if err != nil {
		s.badRequest(w, "amount must be an unsigned integer")
		return
	}
	out, err := s.node.SwapQuote(r.Context(), trimParam(r, "id"), query.Get("assetIn"), amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"amountIn": amount, "amountOut": out})
}

type emissionView struct {
	Authority    crypto.Address `json:"authority"`
	RewardAsset  string         `json:"rewardAsset"`
	RewardVault  crypto.Address `json:"rewardVault"`
	FeeVault     crypto.Address `json:"feeVault"`
	TotalPoints  uint64         `json:"totalPoints"`
	EmissionRate uint64         `json:"emissionRate"`
	StartTime    int64          `json:"startTime"`
}

func (s *Server) handleFarmEmission(w http.ResponseWriter, r *http.Request) {
	st, err := s.node.FarmEmission(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, emissionView{
		Authority:    st.Authority,
		RewardAsset:  st.RewardAsset,
		RewardVault:  st.RewardVault,
		FeeVault:     st.FeeVault,
		TotalPoints:  st.TotalPoints,
		EmissionRate: st.EmissionRate,
		StartTime:    st.StartTime,
	})
}

type farmPoolView struct {
	Asset            string         `json:"asset"`
	Vault            crypto.Address `json:"vault"`
	Point            uint64         `json:"point"`
	Deposited        uint64         `json:"deposited"`
	AccPerShare      string         `json:"accPerShare"`
	LastAccrual      int64          `json:"lastAccrual"`
	LockDuration     int64          `json:"lockDuration"`
	AmountMultiplier uint64         `json:"amountMultiplier"`
	TotalUsers       uint64         `json:"totalUsers"`
}

func newFarmPoolView(p *farm.Pool) farmPoolView {
	return farmPoolView{
		Asset:            p.Asset,
		Vault:            p.Vault,
		Point:            p.Point,
		Deposited:        p.Deposited,
		AccPerShare:      wide(p.AccPerShare),
		LastAccrual:      p.LastAccrual,
		LockDuration:     p.LockDuration,
		AmountMultiplier: p.AmountMultiplier,
		TotalUsers:       p.TotalUsers,
	}
}

func wide(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func (s *Server) handleFarmPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.node.FarmPools(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]farmPoolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, newFarmPoolView(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"pools": views})
}

func (s *Server) handleFarmPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.node.FarmPool(r.Context(), trimParam(r, "asset"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newFarmPoolView(pool))
}

type stakerView struct {
	Asset         string         `json:"asset"`
	Owner         crypto.Address `json:"owner"`
	Amount        uint64         `json:"amount"`
	RewardDebt    string         `json:"rewardDebt"`
	PendingReward string         `json:"pendingReward"`
	LastAction    int64          `json:"lastAction"`
	Harvestable   uint64         `json:"harvestable"`
}

func (s *Server) handleFarmStaker(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r)
	if !ok {
		return
	}
	asset := trimParam(r, "asset")
	staker, err := s.node.FarmStaker(r.Context(), addr, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pending, err := s.node.FarmPending(r.Context(), addr, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stakerView{
		Asset:         staker.Asset,
		Owner:         staker.Owner,
		Amount:        staker.Amount,
		RewardDebt:    wide(staker.RewardDebt),
		PendingReward: wide(staker.PendingReward),
		LastAction:    staker.LastAction,
		Harvestable:   pending,
	})
}

type bondConfigView struct {
	Authority          crypto.Address `json:"authority"`
	Developer          crypto.Address `json:"developer"`
	MainAsset          string         `json:"mainAsset"`
	StableAsset        string         `json:"stableAsset"`
	IntermediateAsset  string         `json:"intermediateAsset"`
	SwapPool           string         `json:"swapPool"`
	MainVault          crypto.Address `json:"mainVault"`
	TreasuryVault      crypto.Address `json:"treasuryVault"`
	IntermediateVault  crypto.Address `json:"intermediateVault"`
	BondPrice          uint64         `json:"bondPrice"`
	BondCap            uint64         `json:"bondCap"`
	BondedTotal        uint64         `json:"bondedTotal"`
	BondOpen           bool           `json:"bondOpen"`
	VestDuration       int64          `json:"vestDuration"`
	RebaseRatioPercent uint64         `json:"rebaseRatioPercent"`
	TreasuryUnlocked   bool           `json:"treasuryUnlocked"`
}

func newBondConfigView(c *bond.Config) bondConfigView {
	return bondConfigView{
		Authority:          c.Authority,
		Developer:          c.Developer,
		MainAsset:          c.Assets.Main,
		StableAsset:        c.Assets.Stable,
		IntermediateAsset:  c.Assets.Intermediate,
		SwapPool:           c.Assets.SwapPool,
		MainVault:          c.MainVault,
		TreasuryVault:      c.TreasuryVault,
		IntermediateVault:  c.IntermediateVault,
		BondPrice:          c.BondPrice,
		BondCap:            c.BondCap,
		BondedTotal:        c.BondedTotal,
		BondOpen:           c.BondOpen,
		VestDuration:       c.VestDuration,
		RebaseRatioPercent: c.RebaseRatioPercent,
		TreasuryUnlocked:   c.TreasuryUnlocked,
	}
}

func (s *Server) handleBondConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.node.BondConfig(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newBondConfigView(cfg))
}

type positionView struct {
	Owner           crypto.Address `json:"owner"`
	TotalBonded     uint64         `json:"totalBonded"`
	LastInteraction int64          `json:"lastInteraction"`
	VestDuration    int64          `json:"vestDuration"`
	Claimable       uint64         `json:"claimable"`
}

func (s *Server) handleBondPosition(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r)
	if !ok {
		return
	}
	pos, err := s.node.BondPosition(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	claimable, err := s.node.BondClaimable(r.Context(), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positionView{
		Owner:           pos.Owner,
		TotalBonded:     pos.TotalBonded,
		LastInteraction: pos.LastInteraction,
		VestDuration:    pos.VestDuration,
		Claimable:       claimable,
	})
}
