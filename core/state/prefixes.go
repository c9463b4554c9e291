package state

import "strings"

var (
	farmEmissionKey    = []byte("farm/emission")
	farmPoolIndexKey   = []byte("farm/pools/index")
	farmPoolPrefix     = []byte("farm/pool/")
	farmStakerPrefix   = []byte("farm/staker/")
	bondConfigKey      = []byte("bond/config")
	bondPositionPrefix = []byte("bond/position/")
	bankBalancePrefix  = []byte("bank/balance/")
	bankOwnerPrefix    = []byte("bank/owner/")
	swapPoolPrefix     = []byte("swap/pool/")
	pausePrefix        = []byte("pause/")
	accountNoncePrefix = []byte("account/nonce/")
)

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, p...)
	}
	return buf
}

func farmPoolKey(asset string) []byte {
	return joinKey(farmPoolPrefix, []byte(asset))
}

func farmStakerKey(asset string, owner []byte) []byte {
	return joinKey(farmStakerPrefix, []byte(asset), owner)
}

func bondPositionKey(owner []byte) []byte {
	return joinKey(bondPositionPrefix, owner)
}

func bankBalanceKey(asset string, addr []byte) []byte {
	return joinKey(bankBalancePrefix, []byte(strings.ToUpper(asset)), addr)
}

func bankVaultOwnerKey(vault []byte) []byte {
	return joinKey(bankOwnerPrefix, vault)
}

func swapPoolKey(id string) []byte {
	return joinKey(swapPoolPrefix, []byte(id))
}

func pauseKey(module string) []byte {
	return joinKey(pausePrefix, []byte(strings.ToLower(strings.TrimSpace(module))))
}

func accountNonceKey(addr []byte) []byte {
	return joinKey(accountNoncePrefix, addr)
}
