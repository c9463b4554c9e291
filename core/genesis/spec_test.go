package genesis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bondfarm/crypto"
)

func writeGenesis(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadGenesis(t *testing.T) {
	authority := crypto.DeriveAddress([]byte("authority"))
	user := crypto.DeriveAddress([]byte("user"))
	body := `
time: 1700000000
authority: ` + authority.String() + `
balances:
  - address: ` + user.String() + `
    asset: usdc
    amount: 1000
swap_pools:
  - id: usdc-wsol
    asset_a: usdc
    asset_b: wsol
    fee_bps: 30
farm:
  reward_asset: lfg
  emission_rate: 100
  pools:
    - asset: lp
      point: 1000
      multiplier: 1
bond:
  main_asset: lfg
  stable_asset: usdc
  intermediate_asset: wsol
  swap_pool: usdc-wsol
  vest_duration: 120h
  open: true
paused: [swap]
`
	spec, err := Load(writeGenesis(t, body))
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), spec.Time)
	require.True(t, spec.AuthorityAddress().Equal(authority))
	require.True(t, spec.DeveloperAddress().Equal(authority), "developer falls back to the authority")
	require.Len(t, spec.Balances, 1)
	require.True(t, spec.Balances[0].Recipient().Equal(user))
	require.Equal(t, 120*time.Hour, spec.Bond.VestDuration.Duration)
	require.Equal(t, []string{"swap"}, spec.Paused)
	require.True(t, spec.SwapPools[0].ProviderAddress().IsZero())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeGenesis(t, "time: 1\nminer: nobody\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	authority := crypto.DeriveAddress([]byte("authority")).String()
	base := func() *Spec {
		return &Spec{
			Authority: authority,
			SwapPools: []SwapSpec{{ID: "usdc-wsol", AssetA: "USDC", AssetB: "WSOL"}},
			Farm:      &FarmSpec{RewardAsset: "LFG", Pools: []FarmPoolSpec{{Asset: "LP", Point: 1}}},
			Bond: &BondSpec{
				MainAsset: "LFG", StableAsset: "USDC", IntermediateAsset: "WSOL", SwapPool: "usdc-wsol",
			},
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]struct {
		mutate func(*Spec)
		want   string
	}{
		"missing authority": {func(s *Spec) { s.Authority = "" }, "authority required"},
		"bad authority":     {func(s *Spec) { s.Authority = "not-an-address" }, "authority"},
		"duplicate swap": {func(s *Spec) {
			s.SwapPools = append(s.SwapPools, SwapSpec{ID: "USDC-WSOL", AssetA: "A", AssetB: "B"})
		}, "duplicate id"},
		"duplicate farm pool": {func(s *Spec) {
			s.Farm.Pools = append(s.Farm.Pools, FarmPoolSpec{Asset: " lp "})
		}, "duplicate asset"},
		"undeclared bond pool": {func(s *Spec) { s.Bond.SwapPool = "other" }, "not declared"},
		"wrong bond pair":      {func(s *Spec) { s.Bond.IntermediateAsset = "ETH" }, "must trade"},
		"fractional vest": {func(s *Spec) {
			s.Bond.VestDuration = Duration{Duration: 1500 * time.Millisecond}
		}, "whole seconds"},
		"liquidity without provider": {func(s *Spec) { s.SwapPools[0].AmountA = 10 }, "provider"},
		"negative time":              {func(s *Spec) { s.Time = -1 }, "negative"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			spec := base()
			tc.mutate(spec)
			err := spec.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}
