// Package types holds the wire and storage shapes shared across the
// sequencer: the scalar field element, transactions, blocks and receipts.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// feltModulus is the Starknet-style prime field modulus
// 2^251 + 17*2^192 + 1, used only to keep Felt values canonical (reduced)
// when constructed from arbitrary big.Int inputs. Field arithmetic beyond
// reduction is out of scope; this module only needs big-endian encoding,
// equality and hashing of a 256-bit scalar.
var feltModulus = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 251)
	t := new(big.Int).Lsh(big.NewInt(17), 192)
	m.Add(m, t)
	m.Add(m, big.NewInt(1))
	return m
}()

// Felt is an opaque 256-bit prime-field element: the universal identifier
// and value type for transaction hashes, block hashes, addresses,
// selectors, calldata elements, nonces and fees.
type Felt [32]byte

// FeltFromUint64 embeds a small non-negative integer as a Felt.
func FeltFromUint64(v uint64) Felt {
	var f Felt
	big.NewInt(0).SetUint64(v).FillBytes(f[:])
	return f
}

// FeltFromBigInt reduces n modulo the field and returns its big-endian
// encoding. Negative inputs are rejected.
func FeltFromBigInt(n *big.Int) (Felt, error) {
	if n.Sign() < 0 {
		return Felt{}, fmt.Errorf("types: felt must be non-negative")
	}
	red := new(big.Int).Mod(n, feltModulus)
	var f Felt
	red.FillBytes(f[:])
	return f, nil
}

// FeltFromHex parses a "0x"-prefixed or bare hex string into a Felt.
func FeltFromHex(s string) (Felt, error) {
	s = trimHexPrefix(s)
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Felt{}, fmt.Errorf("types: invalid felt hex %q: %w", s, err)
	}
	if len(b) > 32 {
		return Felt{}, fmt.Errorf("types: felt hex too long: %d bytes", len(b))
	}
	var f Felt
	copy(f[32-len(b):], b)
	return f, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Bytes returns the big-endian encoding of the scalar.
func (f Felt) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, f[:])
	return out
}

// BigInt returns the scalar as a big.Int.
func (f Felt) BigInt() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

// Uint64 returns the low 64 bits of the scalar, for use with the callers in
// this system that only ever embed small integers (dispatch tags, counts).
func (f Felt) Uint64() uint64 {
	return f.BigInt().Uint64()
}

// IsZero reports whether the scalar is the additive identity.
func (f Felt) IsZero() bool {
	return f == Felt{}
}

// Hex returns the canonical "0x"-prefixed, non-zero-padded hex encoding.
func (f Felt) Hex() string {
	return "0x" + f.BigInt().Text(16)
}

func (f Felt) String() string { return f.Hex() }

// MarshalJSON renders the scalar the way the upstream RPC surface does:
// a "0x"-prefixed hex string.
func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Hex())
}

// UnmarshalJSON accepts a JSON string of hex digits, with or without the
// "0x" prefix (see FeltFromHex). Decimal strings are not recognized: they
// are parsed as hex.
func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FeltFromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
