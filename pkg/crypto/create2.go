package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Create2Address computes the address of a contract deployed with CREATE2.
// Address = Keccak256(0xff ++ factory ++ salt ++ initCodeHash)[12:].
func Create2Address(factory common.Address, salt [32]byte, initCodeHash common.Hash) common.Address {
	return ethcrypto.CreateAddress2(factory, salt, initCodeHash[:])
}

// WalletSalt is the CREATE2 salt used by the stealth wallet factories: the
// owner address left-padded to 32 bytes.
func WalletSalt(owner common.Address) [32]byte {
	var salt [32]byte
	copy(salt[12:], owner[:])
	return salt
}

// AccountSalt is the CREATE2 salt used by the ERC-4337 account factories:
// Keccak256(owner ++ uint256(index)).
func AccountSalt(owner common.Address, index uint64) [32]byte {
	var idx [32]byte
	binary.BigEndian.PutUint64(idx[24:], index)
	var salt [32]byte
	copy(salt[:], Keccak256(owner[:], idx[:]))
	return salt
}
