package state

import (
	"bondfarm/crypto"
	"bondfarm/native/farm"
)

type storedEmission struct {
	Authority    string
	RewardAsset  string
	StateAddress string
	RewardVault  string
	FeeVault     string
	TotalPoints  uint64
	EmissionRate uint64
	StartTime    uint64
}

type storedPool struct {
	Asset            string
	Address          string
	Vault            string
	Point            uint64
	Deposited        uint64
	AccPerShare      []byte
	LastAccrual      uint64
	LockDuration     uint64
	AmountMultiplier uint64
	TotalUsers       uint64
}

type storedStaker struct {
	Asset         string
	Owner         string
	Amount        uint64
	RewardDebt    []byte
	PendingReward []byte
	ExtraReward   []byte
	LastAction    uint64
}

// FarmEmission loads the farm-wide emission state.
func (tx *Tx) FarmEmission() (*farm.EmissionState, bool, error) {
	var stored storedEmission
	ok, err := tx.KVGet(farmEmissionKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	st := &farm.EmissionState{
		RewardAsset:  stored.RewardAsset,
		TotalPoints:  stored.TotalPoints,
		EmissionRate: stored.EmissionRate,
		StartTime:    decodeTime(stored.StartTime),
	}
	if err := decodeAddresses(
		[]*crypto.Address{&st.Authority, &st.StateAddress, &st.RewardVault, &st.FeeVault},
		[]string{stored.Authority, stored.StateAddress, stored.RewardVault, stored.FeeVault},
	); err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// PutFarmEmission stores the farm-wide emission state.
func (tx *Tx) PutFarmEmission(st *farm.EmissionState) error {
	return tx.KVPut(farmEmissionKey, &storedEmission{
		Authority:    encodeAddress(st.Authority),
		RewardAsset:  st.RewardAsset,
		StateAddress: encodeAddress(st.StateAddress),
		RewardVault:  encodeAddress(st.RewardVault),
		FeeVault:     encodeAddress(st.FeeVault),
		TotalPoints:  st.TotalPoints,
		EmissionRate: st.EmissionRate,
		StartTime:    encodeTime(st.StartTime),
	})
}

// FarmPool loads the pool staking asset.
func (tx *Tx) FarmPool(asset string) (*farm.Pool, bool, error) {
	var stored storedPool
	ok, err := tx.KVGet(farmPoolKey(asset), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	pool := &farm.Pool{
		Asset:            stored.Asset,
		Point:            stored.Point,
		Deposited:        stored.Deposited,
		AccPerShare:      decodeWide(stored.AccPerShare),
		LastAccrual:      decodeTime(stored.LastAccrual),
		LockDuration:     decodeTime(stored.LockDuration),
		AmountMultiplier: stored.AmountMultiplier,
		TotalUsers:       stored.TotalUsers,
	}
	if err := decodeAddresses(
		[]*crypto.Address{&pool.Address, &pool.Vault},
		[]string{stored.Address, stored.Vault},
	); err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// PutFarmPool stores pool and records it in the pool index.
func (tx *Tx) PutFarmPool(pool *farm.Pool) error {
	if err := tx.KVPut(farmPoolKey(pool.Asset), &storedPool{
		Asset:            pool.Asset,
		Address:          encodeAddress(pool.Address),
		Vault:            encodeAddress(pool.Vault),
		Point:            pool.Point,
		Deposited:        pool.Deposited,
		AccPerShare:      encodeWide(pool.AccPerShare),
		LastAccrual:      encodeTime(pool.LastAccrual),
		LockDuration:     encodeTime(pool.LockDuration),
		AmountMultiplier: pool.AmountMultiplier,
		TotalUsers:       pool.TotalUsers,
	}); err != nil {
		return err
	}
	return tx.KVAppend(farmPoolIndexKey, []byte(pool.Asset))
}

// DeleteFarmPool removes the pool and its index entry.
func (tx *Tx) DeleteFarmPool(asset string) error {
	if err := tx.KVDelete(farmPoolKey(asset)); err != nil {
		return err
	}
	return tx.KVRemove(farmPoolIndexKey, []byte(asset))
}

// FarmPoolAssets lists every live pool in sorted order.
func (tx *Tx) FarmPoolAssets() ([]string, error) {
	var raw [][]byte
	if err := tx.KVGetList(farmPoolIndexKey, &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, b := range raw {
		out[i] = string(b)
	}
	return out, nil
}

// FarmStaker loads owner's position in the asset pool.
func (tx *Tx) FarmStaker(asset string, owner crypto.Address) (*farm.Staker, bool, error) {
	var stored storedStaker
	ok, err := tx.KVGet(farmStakerKey(asset, owner.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	staker := &farm.Staker{
		Asset:         stored.Asset,
		Amount:        stored.Amount,
		RewardDebt:    decodeWide(stored.RewardDebt),
		PendingReward: decodeWide(stored.PendingReward),
		ExtraReward:   decodeWide(stored.ExtraReward),
		LastAction:    decodeTime(stored.LastAction),
	}
	if staker.Owner, err = decodeAddress(stored.Owner); err != nil {
		return nil, false, err
	}
	return staker, true, nil
}

// PutFarmStaker stores a staker position.
func (tx *Tx) PutFarmStaker(staker *farm.Staker) error {
	return tx.KVPut(farmStakerKey(staker.Asset, staker.Owner.Bytes()), &storedStaker{
		Asset:         staker.Asset,
		Owner:         encodeAddress(staker.Owner),
		Amount:        staker.Amount,
		RewardDebt:    encodeWide(staker.RewardDebt),
		PendingReward: encodeWide(staker.PendingReward),
		ExtraReward:   encodeWide(staker.ExtraReward),
		LastAction:    encodeTime(staker.LastAction),
	})
}
