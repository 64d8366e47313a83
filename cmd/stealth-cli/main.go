// stealth-cli derives stealth keys, generates payment addresses and scans
// for incoming stealth payments.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/internal/announce"
	"github.com/Klingon-tech/klingnet-stealth/internal/log"
	"github.com/Klingon-tech/klingnet-stealth/internal/persist"
	"github.com/Klingon-tech/klingnet-stealth/internal/scanner"
	"github.com/Klingon-tech/klingnet-stealth/internal/storage"
	"github.com/Klingon-tech/klingnet-stealth/internal/wallet"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

const version = "0.1.0"

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("stealth-cli %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := flags.Args[0]
	args := flags.Args[1:]

	// Commands that need no configuration.
	switch cmd {
	case "meta":
		cmdMeta(args)
		return
	case "storage-key":
		cmdStorageKey(args)
		return
	case "sign":
		cmdSign(args)
		return
	case "help":
		usage()
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}
	params, err := cfg.ChainParams()
	if err != nil {
		fatal("chain parameters: %v", err)
	}

	switch cmd {
	case "keys":
		cmdKeys(cfg, params, args)
	case "generate":
		cmdGenerate(params, args)
	case "scan":
		cmdScan(cfg, params, args)
	case "pin":
		cmdPIN(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: stealth-cli [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet (default), testnet or devnet
  --datadir <path>      Data directory (default: ~/.klingnet-stealth)
  --config <path>       Config file (default: <datadir>/stealth.conf)
  --chain-file <path>   JSON chain parameters override
  --rpc <url>           Ethereum JSON-RPC endpoint
  --rpc-timeout <dur>   RPC request timeout
  --rpc-ratelimit <n>   Max log requests per second (0 = unlimited)
  --block-range <n>     Blocks per log request
  --workers <n>         Concurrent candidate verifiers
  --log-level <lvl>     debug, info, warn or error
  --log-file <path>     Also write JSON logs to a file
  --log-json            JSON console logs

Commands:
  keys        Derive stealth keys from a wallet signature and print the meta-address
  meta        Parse and validate a meta-address
  generate    Generate a one-time payment address for a meta-address
  scan        Scan announcements for payments to this wallet
  pin         Cache or clear an encrypted PIN for a wallet
  storage-key Print the hashed storage key for a domain and address
  sign        Sign the key-bootstrap message with a development key
  help        Show this message
`)
}

// ── Key derivation ──────────────────────────────────────────────────────

type keyFlags struct {
	sig     *string
	usePIN  *bool
	version *int
	wallet  *string
}

func addKeyFlags(fs *flag.FlagSet) keyFlags {
	return keyFlags{
		sig:     fs.String("sig", "", "Wallet signature over the bootstrap message (hex)"),
		usePIN:  fs.Bool("pin", false, "Harden the keys with a 6-digit PIN (prompted)"),
		version: fs.Int("version", -1, "PIN derivation version (default: recorded or v2)"),
		wallet:  fs.String("wallet", "", "Wallet address (selects the recorded key version)"),
	}
}

// deriveKeys derives the key pair selected by kf. store may be unavailable.
func deriveKeys(ctx context.Context, kf keyFlags, store *persist.Store) (*stealth.KeyPair, error) {
	sig, err := decodeHex(*kf.sig)
	if err != nil {
		return nil, fmt.Errorf("--sig: %w", err)
	}
	defer clear(sig)

	var addr common.Address
	if *kf.wallet != "" {
		if !common.IsHexAddress(*kf.wallet) {
			return nil, fmt.Errorf("--wallet: invalid address %q", *kf.wallet)
		}
		addr = common.HexToAddress(*kf.wallet)
	}

	pin, err := resolvePIN(kf, store, addr, sig)
	if err != nil {
		return nil, err
	}
	if pin == "" {
		return wallet.DeriveKeyPair(sig)
	}

	var keys *wallet.Keys
	switch {
	case *kf.version >= 0:
		keys, err = wallet.DeriveWithPIN(ctx, sig, pin, wallet.KeyVersion(*kf.version))
	case *kf.wallet != "":
		keys, err = wallet.DeriveForWallet(ctx, store, addr, sig, pin)
	default:
		keys, err = wallet.DeriveWithPIN(ctx, sig, pin, wallet.DefaultVersion)
	}
	if err != nil {
		return nil, err
	}
	clear(keys.ClaimPrivateKey)
	return keys.KeyPair, nil
}

// resolvePIN prompts for a PIN when --pin is set, or falls back to the
// wallet's cached PIN.
func resolvePIN(kf keyFlags, store *persist.Store, addr common.Address, sig []byte) (string, error) {
	if *kf.usePIN {
		pin, err := readSecret("Enter PIN: ")
		if err != nil {
			return "", fmt.Errorf("read PIN: %w", err)
		}
		return string(pin), nil
	}
	if *kf.wallet == "" || !store.Available() {
		return "", nil
	}
	blob, err := store.PINBlob(addr)
	if err != nil || blob == nil {
		return "", err
	}
	pin, err := wallet.DecryptPIN(blob, sig)
	if err != nil {
		return "", fmt.Errorf("cached PIN: %w", err)
	}
	return pin, nil
}

func cmdKeys(cfg *config.Config, params *config.ChainParams, args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	kf := addKeyFlags(fs)
	showPrivate := fs.Bool("show-private", false, "Also print the private keys")
	fs.Parse(args)

	if *kf.sig == "" {
		fatal("Usage: stealth-cli keys --sig <hex> [--pin] [--version n] [--wallet addr] [--show-private]")
	}

	store, closeStore := openStore(cfg, *kf.wallet != "")
	defer closeStore()

	kp, err := deriveKeys(context.Background(), kf, store)
	if err != nil {
		fatal("derive keys: %v", err)
	}
	defer kp.Zero()

	meta, err := kp.MetaAddress(params.Prefix)
	if err != nil {
		fatal("meta-address: %v", err)
	}

	fmt.Printf("Spending public key: 0x%x\n", kp.SpendingPublicKey)
	fmt.Printf("Viewing public key:  0x%x\n", kp.ViewingPublicKey)
	fmt.Printf("Meta-address:        %s\n", meta)
	if *showPrivate {
		fmt.Printf("Spending private key: 0x%x\n", kp.SpendingPrivateKey)
		fmt.Printf("Viewing private key:  0x%x\n", kp.ViewingPrivateKey)
	}
}

// ── Meta-addresses and payments ─────────────────────────────────────────

func cmdMeta(args []string) {
	if len(args) != 1 {
		fatal("Usage: stealth-cli meta <st:prefix:0x...>")
	}
	meta, err := stealth.ParseMetaAddress(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Prefix:              %s\n", meta.Prefix)
	fmt.Printf("Spending public key: 0x%x\n", meta.SpendingPublicKey)
	fmt.Printf("Viewing public key:  0x%x\n", meta.ViewingPublicKey)
	fmt.Printf("Canonical:           %s\n", meta.Canonical())
}

func cmdGenerate(params *config.ChainParams, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	metaStr := fs.String("meta", "", "Recipient meta-address")
	token := fs.String("token", "", "Token contract address (token payments only)")
	amount := fs.String("amount", "0", "Token amount in base units")
	legacy := fs.Bool("legacy-metadata", false, "Encode token metadata without the chain id")
	fs.Parse(args)

	if *metaStr == "" {
		fatal("Usage: stealth-cli generate --meta <st:...> [--token addr --amount n]")
	}
	meta, err := stealth.ParseMetaAddress(*metaStr)
	if err != nil {
		fatal("%v", err)
	}
	if meta.Prefix != params.Prefix {
		log.Stealth.Warn().Str("meta", meta.Prefix).Str("chain", params.Prefix).Msg("Meta-address prefix does not match the selected chain")
	}

	gen, err := stealth.Generate(meta, params)
	if err != nil {
		fatal("generate: %v", err)
	}

	var transfer *announce.TokenTransfer
	if *token != "" {
		if !common.IsHexAddress(*token) {
			fatal("--token: invalid address %q", *token)
		}
		amt, ok := new(big.Int).SetString(*amount, 10)
		if !ok {
			fatal("--amount: invalid amount %q", *amount)
		}
		transfer = &announce.TokenTransfer{Token: common.HexToAddress(*token), Amount: amt}
		if !*legacy {
			transfer.ChainID = announce.ChainTag(params.ChainID)
		}
	}
	metadata, err := announce.EncodeMetadata(gen.ViewTag, transfer)
	if err != nil {
		fatal("metadata: %v", err)
	}

	fmt.Printf("One-time address:    %s\n", gen.OneTimeAddress.Hex())
	if gen.DeployedWalletAddress != (common.Address{}) {
		fmt.Printf("Wallet address:      %s\n", gen.DeployedWalletAddress.Hex())
	}
	fmt.Printf("Ephemeral key:       0x%x\n", gen.EphemeralPublicKey)
	fmt.Printf("View tag:            0x%02x\n", gen.ViewTag)
	fmt.Printf("Metadata:            0x%x\n", metadata)
	fmt.Printf("Scheme id:           %d\n", params.SchemeID)
	fmt.Printf("Announcer:           %s\n", params.Announcer.Hex())
}

// ── Scanning ────────────────────────────────────────────────────────────

func cmdScan(cfg *config.Config, params *config.ChainParams, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	kf := addKeyFlags(fs)
	from := fs.Int64("from", -1, "First block (default: after the stored cursor)")
	to := fs.Int64("to", -1, "Last block (default: chain head)")
	showKeys := fs.Bool("show-keys", false, "Print recovered one-time private keys")
	fs.Parse(args)

	if *kf.sig == "" || *kf.wallet == "" {
		fatal("Usage: stealth-cli scan --sig <hex> --wallet <addr> [--pin] [--from n] [--to n] [--show-keys]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(cfg, true)
	defer closeStore()

	kp, err := deriveKeys(ctx, kf, store)
	if err != nil {
		fatal("derive keys: %v", err)
	}
	defer kp.Zero()

	src, client, err := announce.Dial(ctx, cfg.RPC, params)
	if err != nil {
		fatal("%v", err)
	}
	defer client.Close()

	head := uint64(*to)
	if *to < 0 {
		head, err = src.LatestBlock(ctx)
		if err != nil {
			fatal("%v", err)
		}
	}

	sc := scanner.New(src, params,
		scanner.WithBlockRange(cfg.Scan.BlockRange),
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithCodeSource(src),
	)

	var results []scanner.Result
	if *from >= 0 {
		// An explicit range is a one-off rescan: the cursor is left alone.
		results, err = sc.Scan(ctx, kp, uint64(*from), head)
	} else {
		results, err = scanner.NewSession(sc, store, common.HexToAddress(*kf.wallet)).Sync(ctx, kp, head)
	}
	if err != nil {
		if errors.Is(err, stealth.ErrKeyCorruption) {
			fatal("key self-check failed, refusing to scan: %v", err)
		}
		fatal("scan: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No new payments found.")
		return
	}
	for i := range results {
		r := &results[i]
		fmt.Printf("Payment %d:\n", i+1)
		fmt.Printf("  Address:     %s (%s)\n", r.Announcement.StealthAddress.Hex(), r.WalletType)
		fmt.Printf("  Stealth EOA: %s\n", r.StealthEOA.Hex())
		fmt.Printf("  Block:       %d\n", r.Announcement.BlockNumber)
		fmt.Printf("  Tx:          %s\n", r.Announcement.TxHash.Hex())
		if t := r.Token(); t != nil {
			fmt.Printf("  Token:       %s\n", t.Token.Hex())
			fmt.Printf("  Amount:      %s\n", t.Amount)
		}
		if *showKeys {
			fmt.Printf("  Private key: 0x%x\n", r.PrivateKey)
		}
		r.Zero()
	}
}

// ── PIN cache ───────────────────────────────────────────────────────────

func cmdPIN(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: stealth-cli pin <set|clear> --wallet <addr> [--sig <hex>]")
	}
	fs := flag.NewFlagSet("pin "+args[0], flag.ExitOnError)
	walletStr := fs.String("wallet", "", "Wallet address")
	sigHex := fs.String("sig", "", "Wallet signature (hex), encrypts the cached PIN")
	fs.Parse(args[1:])

	if !common.IsHexAddress(*walletStr) {
		fatal("--wallet: invalid address %q", *walletStr)
	}
	addr := common.HexToAddress(*walletStr)

	store, closeStore := openStore(cfg, true)
	defer closeStore()

	switch args[0] {
	case "set":
		sig, err := decodeHex(*sigHex)
		if err != nil {
			fatal("--sig: %v", err)
		}
		pin, err := readSecret("Enter PIN: ")
		if err != nil {
			fatal("read PIN: %v", err)
		}
		confirm, err := readSecret("Confirm PIN: ")
		if err != nil {
			fatal("read PIN: %v", err)
		}
		if string(pin) != string(confirm) {
			fatal("PINs do not match")
		}
		blob, err := wallet.EncryptPIN(string(pin), sig)
		clear(pin)
		clear(confirm)
		if err != nil {
			fatal("encrypt PIN: %v", err)
		}
		if err := store.SetPINBlob(addr, blob); err != nil {
			fatal("store PIN: %v", err)
		}
		fmt.Println("PIN cached.")
	case "clear":
		if err := store.ClearPINBlob(addr); err != nil {
			fatal("clear PIN: %v", err)
		}
		fmt.Println("PIN cache cleared.")
	default:
		fatal("Unknown pin command: %s", args[0])
	}
}

// ── Utilities ───────────────────────────────────────────────────────────

func cmdStorageKey(args []string) {
	fs := flag.NewFlagSet("storage-key", flag.ExitOnError)
	domain := fs.String("domain", "", "Storage domain")
	address := fs.String("address", "", "Wallet address")
	chainID := fs.Uint64("chain-id", 0, "Chain id (0 = none)")
	fs.Parse(args)

	if *domain == "" || *address == "" {
		fatal("Usage: stealth-cli storage-key --domain <d> --address <addr> [--chain-id n]")
	}
	fmt.Println(persist.StorageKey(*domain, *address, *chainID))
}

func cmdSign(args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyHex := fs.String("key", "", "Development private key (hex)")
	message := fs.String("message", wallet.SignatureMessage, "Message to sign")
	fs.Parse(args)

	raw, err := decodeHex(*keyHex)
	if err != nil {
		fatal("Usage: stealth-cli sign --key <hex> [--message text]: %v", err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	clear(raw)
	if err != nil {
		fatal("%v", err)
	}
	defer key.Zero()

	fmt.Printf("Address:   %s\n", key.Address().Hex())
	fmt.Printf("Signature: 0x%x\n", key.SignMessage([]byte(*message)))
}

// openStore opens the Badger store when needed. An unopenable store
// degrades to an unavailable one.
func openStore(cfg *config.Config, needed bool) (*persist.Store, func()) {
	if !needed {
		return persist.New(nil), func() {}
	}
	db, err := storage.NewBadger(cfg.StoreDir())
	if err != nil {
		log.Storage.Warn().Err(err).Msg("Store unavailable, continuing without persistence")
		return persist.New(nil), func() {}
	}
	return persist.New(db), func() { db.Close() }
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, errors.New("empty value")
	}
	return hex.DecodeString(s)
}

func readSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
