package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/core/types"
	"bondfarm/crypto"
)

// Operation names accepted by Submit.
const (
	OpTransfer          = "bank.transfer"
	OpSwap              = "swap.swap"
	OpAddLiquidity      = "swap.addLiquidity"
	OpCreateSwapPool    = "swap.createPool"
	OpSetPaused         = "admin.setPaused"
	OpFarmJoin          = "farm.join"
	OpFarmDeposit       = "farm.deposit"
	OpFarmWithdraw      = "farm.withdraw"
	OpFarmHarvest       = "farm.harvest"
	OpFarmFund          = "farm.fund"
	OpFarmSetAuthority  = "farm.setAuthority"
	OpFarmSetRate       = "farm.setEmissionRate"
	OpFarmCreatePool    = "farm.createPool"
	OpFarmSetPoint      = "farm.setPoolPoint"
	OpFarmSetMultiplier = "farm.setPoolMultiplier"
	OpFarmClosePool     = "farm.closePool"
	OpFarmRecoverReward = "farm.recoverRewards"
	OpFarmRecoverFees   = "farm.recoverFees"
	OpBondInitPosition  = "bond.initPosition"
	OpBondBond          = "bond.bond"
	OpBondClaim         = "bond.claim"
	OpBondSetAuthority  = "bond.setAuthority"
	OpBondSetPrice      = "bond.setPrice"
	OpBondSetCap        = "bond.setCap"
	OpBondSetVest       = "bond.setVestDuration"
	OpBondSetOpen       = "bond.setOpen"
	OpBondSetUnlocked   = "bond.setTreasuryUnlocked"
	OpBondFund          = "bond.fund"
	OpBondRecoverTreas  = "bond.recoverTreasury"
	OpBondRecoverMain   = "bond.recoverMain"
)

// Payloads carried by signed envelopes. The signer is always the acting
// account; payloads never name it.
type (
	TransferPayload struct {
		Asset  string         `json:"asset"`
		To     crypto.Address `json:"to"`
		Amount uint64         `json:"amount"`
	}
	SwapPayload struct {
		Pool     string `json:"pool"`
		AssetIn  string `json:"assetIn"`
		AmountIn uint64 `json:"amountIn"`
		MinOut   uint64 `json:"minOut"`
	}
	LiquidityPayload struct {
		Pool    string `json:"pool"`
		AmountA uint64 `json:"amountA"`
		AmountB uint64 `json:"amountB"`
	}
	SwapPoolPayload struct {
		Pool   string `json:"pool"`
		AssetA string `json:"assetA"`
		AssetB string `json:"assetB"`
		FeeBps uint64 `json:"feeBps"`
	}
	PausePayload struct {
		Module string `json:"module"`
		Paused bool   `json:"paused"`
	}
	AssetPayload struct {
		Asset string `json:"asset"`
	}
	AmountPayload struct {
		Asset  string `json:"asset,omitempty"`
		Amount uint64 `json:"amount"`
	}
	AuthorityPayload struct {
		Authority crypto.Address `json:"authority"`
	}
	RatePayload struct {
		Rate uint64 `json:"rate"`
	}
	PoolPayload struct {
		Asset      string `json:"asset"`
		Point      uint64 `json:"point"`
		Multiplier uint64 `json:"multiplier"`
	}
	RecoverPayload struct {
		Asset string         `json:"asset,omitempty"`
		To    crypto.Address `json:"to"`
	}
	ValuePayload struct {
		Value uint64 `json:"value"`
	}
	FlagPayload struct {
		Enabled bool `json:"enabled"`
	}
)

// Receipt describes a committed envelope.
type Receipt struct {
	Operation string         `json:"operation"`
	Signer    crypto.Address `json:"signer"`
	Nonce     uint64         `json:"nonce"`
	Result    interface{}    `json:"result,omitempty"`
	Events    []*types.Event `json:"events"`
}

// Submit verifies env, consumes its nonce and applies the named operation.
// The nonce update and the operation commit together.
func (n *Node) Submit(ctx context.Context, env *types.Envelope) (*Receipt, error) {
	if env == nil {
		return nil, fmt.Errorf("core: envelope must not be nil: %w", coreerrors.ErrInvalidParameter)
	}
	signer, err := env.Signer()
	if err != nil {
		return nil, fmt.Errorf("core: %w: %w", coreerrors.ErrUnauthorized, err)
	}
	op := strings.TrimSpace(env.Operation)
	apply, ok := operations[op]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, op)
	}
	receipt := &Receipt{Operation: op, Signer: signer, Nonce: env.Nonce}
	emitted, err := n.update(ctx, op, func(m *modules) error {
		if env.Expiry > 0 && m.now > env.Expiry {
			return ErrEnvelopeExpired
		}
		last, err := m.tx.AccountNonce(signer)
		if err != nil {
			return err
		}
		if env.Nonce <= last {
			return fmt.Errorf("%w: have %d, got %d", ErrNonceUsed, last, env.Nonce)
		}
		if err := m.tx.PutAccountNonce(signer, env.Nonce); err != nil {
			return err
		}
		result, err := apply(m, signer, env)
		if err != nil {
			return err
		}
		receipt.Result = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	receipt.Events = renderEvents(emitted)
	return receipt, nil
}

// AccountNonce returns the highest nonce accepted from addr.
func (n *Node) AccountNonce(ctx context.Context, addr crypto.Address) (uint64, error) {
	var nonce uint64
	err := n.view(ctx, "account.nonce", func(m *modules) error {
		var err error
		nonce, err = m.tx.AccountNonce(addr)
		return err
	})
	return nonce, err
}

func renderEvents(evts []events.Event) []*types.Event {
	out := make([]*types.Event, 0, len(evts))
	for _, evt := range evts {
		if r, ok := evt.(interface{ Event() *types.Event }); ok {
			if rendered := r.Event(); rendered != nil {
				out = append(out, rendered)
			}
		}
	}
	return out
}

type applyFunc func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error)

func decode[T any](env *types.Envelope) (T, error) {
	var payload T
	if err := env.Decode(&payload); err != nil {
		return payload, fmt.Errorf("%w: %v", coreerrors.ErrInvalidParameter, err)
	}
	return payload, nil
}

type amountResult struct {
	Amount uint64 `json:"amount"`
}

var operations = map[string]applyFunc{
	OpTransfer: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[TransferPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.transfer(p.Asset, signer, p.To, p.Amount)
	},
	OpSwap: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[SwapPayload](env)
		if err != nil {
			return nil, err
		}
		out, err := m.swapExact(signer, p.Pool, p.AssetIn, p.AmountIn, p.MinOut)
		return amountResult{out}, err
	},
	OpAddLiquidity: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[LiquidityPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.addLiquidity(signer, p.Pool, p.AmountA, p.AmountB)
	},
	OpCreateSwapPool: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[SwapPoolPayload](env)
		if err != nil {
			return nil, err
		}
		return m.createSwapPool(signer, p.Pool, p.AssetA, p.AssetB, p.FeeBps)
	},
	OpSetPaused: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[PausePayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.setPaused(signer, p.Module, p.Paused)
	},
	OpFarmJoin: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AssetPayload](env)
		if err != nil {
			return nil, err
		}
		return m.farm.Join(signer, p.Asset)
	},
	OpFarmDeposit: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AmountPayload](env)
		if err != nil {
			return nil, err
		}
		return m.farm.Deposit(signer, p.Asset, p.Amount)
	},
	OpFarmWithdraw: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AmountPayload](env)
		if err != nil {
			return nil, err
		}
		fee, err := m.farm.Withdraw(signer, p.Asset, p.Amount)
		return struct {
			Fee uint64 `json:"fee"`
		}{fee}, err
	},
	OpFarmHarvest: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AssetPayload](env)
		if err != nil {
			return nil, err
		}
		paid, err := m.farm.Harvest(signer, p.Asset)
		return amountResult{paid}, err
	},
	OpFarmFund: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AmountPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.Fund(signer, p.Amount)
	},
	OpFarmSetAuthority: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AuthorityPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.SetAuthority(signer, p.Authority)
	},
	OpFarmSetRate: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[RatePayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.ChangeEmissionRate(signer, p.Rate)
	},
	OpFarmCreatePool: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[PoolPayload](env)
		if err != nil {
			return nil, err
		}
		return m.farm.CreatePool(signer, p.Asset, p.Point, p.Multiplier)
	},
	OpFarmSetPoint: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[PoolPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.ChangePoolPoint(signer, p.Asset, p.Point)
	},
	OpFarmSetMultiplier: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[PoolPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.ChangePoolMultiplier(signer, p.Asset, p.Multiplier)
	},
	OpFarmClosePool: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AssetPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.farm.ClosePool(signer, p.Asset)
	},
	OpFarmRecoverReward: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[RecoverPayload](env)
		if err != nil {
			return nil, err
		}
		amount, err := m.farm.RecoverRewards(signer, p.To)
		return amountResult{amount}, err
	},
	OpFarmRecoverFees: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[RecoverPayload](env)
		if err != nil {
			return nil, err
		}
		amount, err := m.farm.RecoverFees(signer, p.Asset, p.To)
		return amountResult{amount}, err
	},
	OpBondInitPosition: func(m *modules, signer crypto.Address, _ *types.Envelope) (interface{}, error) {
		return m.bond.InitPosition(signer)
	},
	OpBondBond: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AmountPayload](env)
		if err != nil {
			return nil, err
		}
		out, err := m.bond.Bond(signer, p.Amount)
		return amountResult{out}, err
	},
	OpBondClaim: func(m *modules, signer crypto.Address, _ *types.Envelope) (interface{}, error) {
		claimed, err := m.bond.Claim(signer)
		return amountResult{claimed}, err
	},
	OpBondSetAuthority: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AuthorityPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.SetAuthority(signer, p.Authority)
	},
	OpBondSetPrice: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[ValuePayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.SetPrice(signer, p.Value)
	},
	OpBondSetCap: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[ValuePayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.SetCap(signer, p.Value)
	},
	OpBondSetVest: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[ValuePayload](env)
		if err != nil {
			return nil, err
		}
		if p.Value > uint64(1<<62) {
			return nil, fmt.Errorf("core: vest duration out of range: %w", coreerrors.ErrInvalidParameter)
		}
		return nil, m.bond.SetVestDuration(signer, int64(p.Value))
	},
	OpBondSetOpen: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[FlagPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.SetOpen(signer, p.Enabled)
	},
	OpBondSetUnlocked: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[FlagPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.SetTreasuryUnlocked(signer, p.Enabled)
	},
	OpBondFund: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[AmountPayload](env)
		if err != nil {
			return nil, err
		}
		return nil, m.bond.Fund(signer, p.Amount)
	},
	OpBondRecoverTreas: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[RecoverPayload](env)
		if err != nil {
			return nil, err
		}
		amount, err := m.bond.RecoverTreasury(signer, p.To)
		return amountResult{amount}, err
	},
	OpBondRecoverMain: func(m *modules, signer crypto.Address, env *types.Envelope) (interface{}, error) {
		p, err := decode[RecoverPayload](env)
		if err != nil {
			return nil, err
		}
		amount, err := m.bond.RecoverMain(signer, p.To)
		return amountResult{amount}, err
	},
}

// Operations returns the names accepted by Submit.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
