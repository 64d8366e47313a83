package stealth

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

// MetaAddressScheme is the URI scheme of a stealth meta-address.
const MetaAddressScheme = "st"

// metaPattern matches st:<prefix>:0x<66 hex><66 hex>.
var metaPattern = regexp.MustCompile(`^st:([a-z][a-z0-9-]*):0x([0-9a-fA-F]{132})$`)

// MetaAddress is a recipient's published identifier combining the spending
// and viewing public keys.
type MetaAddress struct {
	Prefix            string
	SpendingPublicKey []byte
	ViewingPublicKey  []byte
	Raw               string
}

// NewMetaAddress validates both keys and formats the meta-address.
func NewMetaAddress(prefix string, spendingPub, viewingPub []byte) (*MetaAddress, error) {
	raw, err := FormatMetaAddress(prefix, spendingPub, viewingPub)
	if err != nil {
		return nil, err
	}
	return &MetaAddress{
		Prefix:            prefix,
		SpendingPublicKey: bytes.Clone(spendingPub),
		ViewingPublicKey:  bytes.Clone(viewingPub),
		Raw:               raw,
	}, nil
}

// FormatMetaAddress renders st:<prefix>:0x<spend><view> with lowercase hex.
func FormatMetaAddress(prefix string, spendingPub, viewingPub []byte) (string, error) {
	if _, err := crypto.ParsePubKey(spendingPub); err != nil {
		return "", fmt.Errorf("%w: spending public key: %v", ErrInvalidFormat, err)
	}
	if _, err := crypto.ParsePubKey(viewingPub); err != nil {
		return "", fmt.Errorf("%w: viewing public key: %v", ErrInvalidFormat, err)
	}
	raw := MetaAddressScheme + ":" + prefix + ":0x" +
		hex.EncodeToString(spendingPub) + hex.EncodeToString(viewingPub)
	if !metaPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: chain prefix %q", ErrInvalidFormat, prefix)
	}
	return raw, nil
}

// ParseMetaAddress parses and validates a meta-address. Anything not
// exactly matching st:<prefix>:0x<66 hex><66 hex>, or carrying a key that is
// not a compressed secp256k1 point, is rejected with ErrInvalidFormat.
func ParseMetaAddress(s string) (*MetaAddress, error) {
	m := metaPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: meta-address must be st:<prefix>:0x<spend><view>", ErrInvalidFormat)
	}
	keys, err := hex.DecodeString(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	spend := keys[:crypto.CompressedPubKeySize]
	view := keys[crypto.CompressedPubKeySize:]
	if _, err := crypto.ParsePubKey(spend); err != nil {
		return nil, fmt.Errorf("%w: spending public key: %v", ErrInvalidFormat, err)
	}
	if _, err := crypto.ParsePubKey(view); err != nil {
		return nil, fmt.Errorf("%w: viewing public key: %v", ErrInvalidFormat, err)
	}
	return &MetaAddress{
		Prefix:            m[1],
		SpendingPublicKey: spend,
		ViewingPublicKey:  view,
		Raw:               s,
	}, nil
}

// String returns the meta-address exactly as formatted or parsed.
func (m *MetaAddress) String() string {
	return m.Raw
}

// Equal reports whether two meta-addresses carry the same prefix and keys.
// Hex case in Raw is not significant.
func (m *MetaAddress) Equal(o *MetaAddress) bool {
	return m.Prefix == o.Prefix &&
		bytes.Equal(m.SpendingPublicKey, o.SpendingPublicKey) &&
		bytes.Equal(m.ViewingPublicKey, o.ViewingPublicKey)
}

// Canonical returns the lowercase-hex form of the meta-address.
func (m *MetaAddress) Canonical() string {
	return strings.ToLower(m.Raw)
}
