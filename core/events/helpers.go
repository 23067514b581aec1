package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"taskchain/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatID(id []byte) string {
	return hex.EncodeToString(id)
}

func formatAccount(addr [20]byte) string {
	return crypto.AccountString(addr)
}

func formatAccounts(addrs [][20]byte) string {
	encoded := make([]string, len(addrs))
	for i, addr := range addrs {
		encoded[i] = formatAccount(addr)
	}
	return strings.Join(encoded, ",")
}
