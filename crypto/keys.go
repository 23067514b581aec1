package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

const (
	TaskPrefix AddressPrefix = "task"
	// ModulePrefix marks module-owned sovereign accounts in human-readable output.
	ModulePrefix AddressPrefix = "taskmod"
)

// AddressLength is the byte length of every account address.
const AddressLength = 20

// Address represents a 20-byte account address with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

// MustNewAddress is NewAddress for inputs already known to be 20 bytes.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// Account returns the address as a fixed-size array.
func (a Address) Account() [AddressLength]byte {
	var out [AddressLength]byte
	copy(out[:], a.bytes)
	return out
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// AccountString renders a raw account with the default prefix.
func AccountString(account [AddressLength]byte) string {
	return MustNewAddress(TaskPrefix, account[:]).String()
}

// ParseAccount accepts either a bech32 address or a 0x-prefixed hex string.
func ParseAccount(raw string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return out, fmt.Errorf("account must not be empty")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		decoded, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return out, fmt.Errorf("decode hex account: %w", err)
		}
		if len(decoded) != AddressLength {
			return out, fmt.Errorf("hex account must be %d bytes, got %d", AddressLength, len(decoded))
		}
		copy(out[:], decoded)
		return out, nil
	}
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	return addr.Account(), nil
}

// DeriveAccount returns the last 20 bytes of keccak256 over the given parts.
// Module sovereign accounts are derived this way so they cannot collide with
// key-controlled accounts in practice.
func DeriveAccount(parts ...[]byte) [AddressLength]byte {
	var out [AddressLength]byte
	hash := crypto.Keccak256(parts...)
	copy(out[:], hash[len(hash)-AddressLength:])
	return out
}
