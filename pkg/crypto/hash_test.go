package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hex.EncodeToString(Keccak256(tt.input))
			if got != tt.want {
				t.Errorf("Keccak256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeccak256_MultipleInputs(t *testing.T) {
	joined := Keccak256([]byte("hello world"))
	split := Keccak256([]byte("hello"), []byte(" "), []byte("world"))
	if hex.EncodeToString(joined) != hex.EncodeToString(split) {
		t.Error("Keccak256 over parts differs from Keccak256 over the concatenation")
	}
}

func TestSha256(t *testing.T) {
	got := Sha256([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("Sha256(abc) = %x, want %s", got, want)
	}
}

func TestConcat(t *testing.T) {
	got := Concat([]byte("a"), nil, []byte("bc"))
	if string(got) != "abc" {
		t.Errorf("Concat = %q, want %q", got, "abc")
	}
}

// Example 1 from EIP-1014.
func TestCreate2Address(t *testing.T) {
	initCodeHash := common.BytesToHash(Keccak256([]byte{0x00}))
	got := Create2Address(common.Address{}, [32]byte{}, initCodeHash)
	want := common.HexToAddress("0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38")
	if got != want {
		t.Errorf("Create2Address = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestWalletSalt(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	salt := WalletSalt(owner)
	for i := 0; i < 12; i++ {
		if salt[i] != 0 {
			t.Fatalf("salt[%d] = %x, want 0", i, salt[i])
		}
	}
	if common.BytesToAddress(salt[12:]) != owner {
		t.Error("salt does not end with owner address")
	}
}

func TestAccountSalt(t *testing.T) {
	owner := common.HexToAddress("0x1234567890123456789012345678901234567890")
	a := AccountSalt(owner, 0)
	b := AccountSalt(owner, 1)
	if a == b {
		t.Error("different account indexes produced the same salt")
	}
	if a == WalletSalt(owner) {
		t.Error("account salt should differ from wallet salt")
	}

	var idx [32]byte
	want := Keccak256(owner[:], idx[:])
	if hex.EncodeToString(a[:]) != hex.EncodeToString(want) {
		t.Errorf("AccountSalt(owner, 0) = %x, want %x", a, want)
	}
}
