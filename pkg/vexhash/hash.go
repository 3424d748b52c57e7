// Package vexhash provides the domain-separated SHA-256 hashing primitives
// shared by the audit chain and the Merkle tree: a fixed 32-byte digest type
// with distinct prefixes for leaf and internal-node hashing, plus an RFC 8785
// JSON Canonicalization Scheme encoder used to make those digests
// reproducible across independent implementations.
package vexhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Size is the fixed digest length in bytes.
const Size = sha256.Size

const (
	leafPrefix     byte = 0x00
	internalPrefix byte = 0x01
)

// Hash is a fixed 32-byte SHA-256 digest. The zero value (32 zero bytes) is
// not the digest of any input in practice; it stands for an absent digest,
// e.g. the root of an empty Merkle tree, and IsZero reports it.
type Hash [Size]byte

// ErrInvalidHexLength is returned by ParseHex when the input does not decode
// to exactly Size bytes.
var ErrInvalidHexLength = errors.New("vexhash: hex string does not decode to 32 bytes")

// Digest computes a plain SHA-256 digest with no domain separation. Used for
// content hashes (context packets) and tool-result hashes, which are not
// Merkle tree nodes.
func Digest(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// Leaf computes H(0x00 || data), the domain-separated leaf hash used by the
// Merkle tree.
func Leaf(data []byte) Hash {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, leafPrefix)
	buf = append(buf, data...)
	return Hash(sha256.Sum256(buf))
}

// CombineInternal computes H(0x01 || left || right), the domain-separated
// internal Merkle node hash.
func CombineInternal(left, right Hash) Hash {
	buf := make([]byte, 0, 1+2*Size)
	buf = append(buf, internalPrefix)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return Hash(sha256.Sum256(buf))
}

// Hex returns the canonical lower-case hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String satisfies fmt.Stringer with the full hex encoding. The original
// reference implementation truncated this to 16 characters for display,
// which would silently shorten the value if ever fed back into a hash input;
// this implementation always renders the full digest so String() is safe to
// use anywhere Hex() is used.
func (h Hash) String() string {
	return h.Hex()
}

// ParseHex decodes a hex string into a Hash, failing if it does not decode to
// exactly Size bytes.
func ParseHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != Size {
		return Hash{}, ErrInvalidHexLength
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
