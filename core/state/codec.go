package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"bondfarm/crypto"
)

// Addresses are persisted in their bech32 form so the prefix survives a round
// trip.
func encodeAddress(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

func decodeAddress(s string) (crypto.Address, error) {
	if s == "" {
		return crypto.Address{}, nil
	}
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("state: decode address %q: %w", s, err)
	}
	return addr, nil
}

func encodeWide(v *uint256.Int) []byte {
	if v == nil || v.IsZero() {
		return nil
	}
	return v.Bytes()
}

func decodeWide(b []byte) *uint256.Int {
	return new(uint256.Int).SetBytes(b)
}

func encodeTime(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func decodeTime(ts uint64) int64 {
	return int64(ts)
}

func decodeAddresses(dst []*crypto.Address, src []string) error {
	if len(dst) != len(src) {
		return fmt.Errorf("state: address count mismatch")
	}
	for i, s := range src {
		addr, err := decodeAddress(s)
		if err != nil {
			return err
		}
		*dst[i] = addr
	}
	return nil
}
