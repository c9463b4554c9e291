package events

import (
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatWide(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
