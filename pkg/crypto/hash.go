// Package crypto provides the secp256k1 and hashing primitives used by the
// stealth engine.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// HashSize is the length of a Keccak-256 or SHA-256 digest in bytes.
const HashSize = 32

// Keccak256 computes the Keccak-256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}

// Keccak256Hash computes the Keccak-256 hash of the concatenated inputs and
// returns it as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return ethcrypto.Keccak256Hash(data...)
}

// Sha256 computes the SHA-256 hash of the input data.
func Sha256(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// Sha512 computes the SHA-512 hash of the input data.
func Sha512(data []byte) [sha512.Size]byte {
	return sha512.Sum512(data)
}

// Concat joins byte slices into a freshly allocated slice.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// AddressFromPubKey derives an Ethereum address from a public key.
// Address = Keccak256(uncompressed_pubkey[1:])[12:].
func AddressFromPubKey(pub *PublicKey) common.Address {
	uncompressed := pub.key.SerializeUncompressed()
	return common.BytesToAddress(Keccak256(uncompressed[1:])[12:])
}
