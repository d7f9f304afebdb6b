// Package account defines the identifiers of patrons, creators, fee
// recipients and pool custody accounts.
package account

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLen is the byte length of an account address.
const AddressLen = 20

var (
	// ErrInvalidAddress indicates the text is not a 20-byte hex address.
	ErrInvalidAddress = errors.New("account: invalid address")

	// ErrChecksumMismatch indicates mixed-case input whose checksum is wrong.
	ErrChecksumMismatch = errors.New("account: address checksum mismatch")
)

// Address identifies an account holding stable tokens or LP shares.
// The zero Address means "unset".
type Address [AddressLen]byte

// Zero is the unset address.
var Zero Address

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool { return a == Zero }

// Hex returns the checksummed 0x-prefixed form.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])
	digest := keccak256([]byte(lower))

	var b strings.Builder
	b.Grow(2 + len(lower))
	b.WriteString("0x")
	for i, c := range lower {
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && nibble&0x0f >= 8 {
			b.WriteRune(c - 'a' + 'A')
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a 0x-prefixed (or bare) 40-digit hex address. All-lower or
// all-upper input is accepted as is; mixed-case input must carry a valid
// checksum.
func Parse(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*AddressLen {
		return Zero, fmt.Errorf("%w: %q has %d hex digits", ErrInvalidAddress, s, len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	var a Address
	copy(a[:], b)

	if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) {
		if a.Hex()[2:] != raw {
			return Zero, fmt.Errorf("%w: %q", ErrChecksumMismatch, s)
		}
	}
	return a, nil
}

// MustParse is Parse for constants and tests; it panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Derive returns a deterministic address for a non-user account such as a
// pool's custody account: the last 20 bytes of keccak256(domain || 0x00 || id).
func Derive(domain, id string) Address {
	buf := make([]byte, 0, len(domain)+1+len(id))
	buf = append(buf, domain...)
	buf = append(buf, 0)
	buf = append(buf, id...)
	digest := keccak256(buf)

	var a Address
	copy(a[:], digest[len(digest)-AddressLen:])
	return a
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
