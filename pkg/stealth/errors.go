package stealth

import "errors"

// Error taxonomy shared by every layer of the engine. Wrap with %w and test
// with errors.Is. An address that fails verification is a negative result,
// not an error.
var (
	// ErrInvalidFormat marks a malformed meta-address, key encoding or PIN.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrKeyCorruption marks a private key that does not produce its stored
	// public key. Fatal: never scan or spend with such a pair.
	ErrKeyCorruption = errors.New("key corruption")
	// ErrDerivationFailure marks a failed hash/KDF step. Fatal, never retried.
	ErrDerivationFailure = errors.New("derivation failure")
	// ErrStorageUnavailable marks a missing persistence layer.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
