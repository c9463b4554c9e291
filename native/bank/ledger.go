package bank

import (
	"errors"
	"fmt"
	"strings"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
)

var (
	errNilState    = errors.New("bank: state not configured")
	errEmptyAsset  = fmt.Errorf("bank: asset required: %w", coreerrors.ErrInvalidParameter)
	errZeroAddress = fmt.Errorf("bank: address required: %w", coreerrors.ErrInvalidParameter)
)

type ledgerState interface {
	BankBalance(asset string, addr crypto.Address) (uint64, error)
	PutBankBalance(asset string, addr crypto.Address, amount uint64) error
	VaultOwner(vault crypto.Address) (crypto.Address, bool, error)
	PutVaultOwner(vault, owner crypto.Address) error
}

// Ledger tracks fungible balances per asset and address. Vault addresses
// register an owner which may sign transfers out of them.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger binds a ledger to the given state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures where transfer events are sent.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return nil
}

// Balance returns the balance of asset held by addr.
func (l *Ledger) Balance(asset string, addr crypto.Address) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	key := normalizeAsset(asset)
	if key == "" {
		return 0, errEmptyAsset
	}
	return l.state.BankBalance(key, addr)
}

// Owner returns the registered owner of a vault, if any.
func (l *Ledger) Owner(vault crypto.Address) (crypto.Address, bool, error) {
	if err := l.ready(); err != nil {
		return crypto.Address{}, false, err
	}
	return l.state.VaultOwner(vault)
}

// SetOwner registers owner as the signing authority of vault. Ownership is
// create-once: an existing different owner is ErrAlreadyExists.
func (l *Ledger) SetOwner(vault, owner crypto.Address) error {
	if err := l.ready(); err != nil {
		return err
	}
	if vault.IsZero() || owner.IsZero() {
		return errZeroAddress
	}
	current, ok, err := l.state.VaultOwner(vault)
	if err != nil {
		return err
	}
	if ok {
		if current.Equal(owner) {
			return nil
		}
		return fmt.Errorf("bank: vault %s owned by %s: %w", vault.String(), current.String(), coreerrors.ErrAlreadyExists)
	}
	return l.state.PutVaultOwner(vault, owner)
}

// Mint credits new supply. Only genesis and operator tooling call it.
func (l *Ledger) Mint(asset string, to crypto.Address, amount uint64) error {
	if err := l.ready(); err != nil {
		return err
	}
	key := normalizeAsset(asset)
	if key == "" {
		return errEmptyAsset
	}
	if to.IsZero() {
		return errZeroAddress
	}
	balance, err := l.state.BankBalance(key, to)
	if err != nil {
		return err
	}
	next, err := nativecommon.AddU64(balance, amount)
	if err != nil {
		return err
	}
	if err := l.state.PutBankBalance(key, to, next); err != nil {
		return err
	}
	l.emitter.Emit(events.Mint{Asset: key, To: to, Amount: amount})
	return nil
}

// Transfer moves amount of asset from one address to another. authority must
// be from itself or the registered owner of from.
func (l *Ledger) Transfer(asset string, from, to, authority crypto.Address, amount uint64) error {
	if err := l.ready(); err != nil {
		return err
	}
	key := normalizeAsset(asset)
	if key == "" {
		return errEmptyAsset
	}
	if from.IsZero() || to.IsZero() {
		return errZeroAddress
	}
	if err := l.authorize(from, authority); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	fromBalance, err := l.state.BankBalance(key, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("bank: %s holds %d %s, needs %d: %w", from.String(), fromBalance, key, amount, coreerrors.ErrInsufficientFunds)
	}
	if from.Equal(to) {
		return nil
	}
	toBalance, err := l.state.BankBalance(key, to)
	if err != nil {
		return err
	}
	credited, err := nativecommon.AddU64(toBalance, amount)
	if err != nil {
		return err
	}
	if err := l.state.PutBankBalance(key, from, fromBalance-amount); err != nil {
		return err
	}
	if err := l.state.PutBankBalance(key, to, credited); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{Asset: key, From: from, To: to, Authority: authority, Amount: amount})
	return nil
}

func (l *Ledger) authorize(from, authority crypto.Address) error {
	if !authority.IsZero() && authority.Equal(from) {
		return nil
	}
	owner, ok, err := l.state.VaultOwner(from)
	if err != nil {
		return err
	}
	if ok && !authority.IsZero() && owner.Equal(authority) {
		return nil
	}
	return fmt.Errorf("bank: %s may not move funds of %s: %w", authority.String(), from.String(), coreerrors.ErrUnauthorized)
}
