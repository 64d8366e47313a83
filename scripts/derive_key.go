// derive_key.go prints the address, bootstrap signature and stealth
// meta-address for a hex-encoded development private key file.
// Usage: go run scripts/derive_key.go <keyfile> [prefix]
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-stealth/internal/wallet"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> [prefix]")
		os.Exit(1)
	}
	prefix := "dev"
	if len(os.Args) > 2 {
		prefix = os.Args[2]
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sig := key.SignMessage([]byte(wallet.SignatureMessage))
	kp, err := wallet.DeriveKeyPair(sig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	meta, err := kp.MetaAddress(prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("pubkey=%x\n", key.PublicKey().SerializeCompressed())
	fmt.Printf("address=%s\n", key.Address().Hex())
	fmt.Printf("signature=0x%x\n", sig)
	fmt.Printf("meta=%s\n", meta)
}
