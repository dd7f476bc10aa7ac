package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// AssetID identifies a fungible asset tracked by the ledger. Venue adapters
// and intents reference assets exclusively by this identifier.
type AssetID uint32

// Bytes returns the big-endian storage encoding of the asset identifier.
func (a AssetID) Bytes() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(a))
	return buf
}

func (a AssetID) String() string {
	return fmt.Sprintf("asset-%d", uint32(a))
}

// Address is a 20-byte account identifier.
type Address [20]byte

// BytesToAddress copies up to the last 20 bytes of b into an Address,
// left-padding shorter inputs.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > len(addr) {
		b = b[len(b)-len(addr):]
	}
	copy(addr[len(addr)-len(b):], b)
	return addr
}

// ParseAddress decodes a hex-encoded address with optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	if len(raw) != 20 {
		return Address{}, fmt.Errorf("parse address: expected 20 bytes, got %d", len(raw))
	}
	var addr Address
	copy(addr[:], raw)
	return addr, nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}
