// ikeygen is the operator tool for the identikit keyring: mnemonic
// generation, key derivation, registry bootstrap and envelope seal/open.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"identikit/go-core/internal/bootstrap/keyringconfig"
	"identikit/go-core/internal/derive"
	"identikit/go-core/internal/envelope"
	"identikit/go-core/internal/fingerprint"
	"identikit/go-core/internal/platform/privacylog"
	"identikit/go-core/internal/registry"
	"identikit/go-core/internal/seed"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "version":
		fmt.Printf("ikeygen version=%s commit=%s build_date=%s\n", version, commit, buildDate)
	case "mnemonic":
		runMnemonic()
	case "derive":
		runDerive(os.Args[2:])
	case "bootstrap":
		runBootstrap(os.Args[2:])
	case "rotate":
		runRotate(os.Args[2:])
	case "seal":
		runSeal(os.Args[2:])
	case "open":
		runOpen(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ikeygen <mnemonic|derive|bootstrap|rotate|seal|open|version> [flags]")
	os.Exit(2)
}

func runMnemonic() {
	mnemonic, err := seed.NewMnemonic()
	if err != nil {
		failf("generate mnemonic: %v", err)
	}
	fmt.Println(mnemonic)
}

func runDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	path := fs.String("path", "", "derivation path, e.g. ik:v1:x25519/0/encryption/0")
	seedHex := fs.String("seed-hex", "", "root seed as hex (mutually exclusive with -mnemonic)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic sentence")
	parseArgs(fs, args)

	p, err := derive.Parse(*path)
	if err != nil {
		failf("parse path: %v", err)
	}
	src, err := seedSource(*seedHex, *mnemonic)
	if err != nil {
		failf("seed: %v", err)
	}
	root, err := src.Seed()
	if err != nil {
		failf("seed: %v", err)
	}
	kp, err := derive.Derive(root, p)
	if err != nil {
		failf("derive: %v", err)
	}

	fp := fingerprint.Of(kp.Public[:])
	fmt.Printf("path:        %s\n", p)
	fmt.Printf("public:      %s\n", hex.EncodeToString(kp.Public[:]))
	fmt.Printf("fingerprint: %s\n", fingerprint.Full(fp))
	fmt.Printf("short:       %s\n", fingerprint.Short(fp, fingerprint.TagFor(p.Curve)))
}

func runBootstrap(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	configPath := fs.String("config", "", "path to keyring.yaml (optional)")
	seedHex := fs.String("seed-hex", "", "root seed as hex (mutually exclusive with -mnemonic)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic sentence")
	parseArgs(fs, args)

	logger := privacylog.DefaultLogger()
	cfg := keyringconfig.LoadFromPath(*configPath)

	src, err := seedSource(*seedHex, *mnemonic)
	if err != nil {
		failf("seed: %v", err)
	}
	r, store, err := openRegistry(cfg, src)
	if err != nil {
		failf("registry: %v", err)
	}

	for _, raw := range cfg.Bootstrap.Paths {
		p, err := derive.Parse(raw)
		if err != nil {
			failf("config path %q: %v", raw, err)
		}
		rec, err := r.Register(p)
		if err != nil {
			failf("register %s: %v", p, err)
		}
		logger.Info("registered", "path", p.String(), "fingerprint", rec.ShortFingerprint())
	}
	for _, raw := range cfg.Bootstrap.Activate {
		p, err := derive.Parse(raw)
		if err != nil {
			failf("config path %q: %v", raw, err)
		}
		// Re-running bootstrap against persisted state finds these paths
		// already active; that is not a failure.
		if err := r.Activate(p); err != nil && !errors.Is(err, registry.ErrInvalidTransition) {
			failf("activate %s: %v", p, err)
		}
	}

	if err := store.Persist(r.Export()); err != nil {
		failf("persist state: %v", err)
	}
	for _, rec := range r.Records() {
		fmt.Printf("%-10s gen=%d %-32s %s\n", rec.State, rec.Generation, rec.Path, rec.ShortFingerprint())
	}
}

func runRotate(args []string) {
	fs := flag.NewFlagSet("rotate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to keyring.yaml (optional)")
	seedHex := fs.String("seed-hex", "", "root seed as hex (mutually exclusive with -mnemonic)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic sentence")
	curve := fs.String("curve", "x25519", "curve of the pair to rotate: ed25519 | x25519")
	role := fs.String("role", "encryption", "role of the pair to rotate")
	all := fs.Bool("all", false, "replace the root seed: revoke every key, mint a fresh mnemonic")
	parseArgs(fs, args)

	logger := privacylog.DefaultLogger()
	cfg := keyringconfig.LoadFromPath(*configPath)
	src, err := seedSource(*seedHex, *mnemonic)
	if err != nil {
		failf("seed: %v", err)
	}
	r, store, err := openRegistry(cfg, src)
	if err != nil {
		failf("registry: %v", err)
	}

	if *all {
		fresh, err := seed.NewMnemonic()
		if err != nil {
			failf("generate replacement mnemonic: %v", err)
		}
		next, err := seed.FromMnemonic(fresh, "")
		if err != nil {
			failf("replacement seed: %v", err)
		}
		if err := r.RotateAll(next); err != nil {
			failf("rotate all: %v", err)
		}
		logger.Info("seed replaced, all prior keys revoked")
		fmt.Println("new mnemonic (store it now, it is not persisted):")
		fmt.Println(fresh)
	} else {
		var c derive.Curve
		switch *curve {
		case "ed25519":
			c = derive.CurveEd25519
		case "x25519":
			c = derive.CurveX25519
		default:
			failf("unknown curve %q", *curve)
		}
		res, err := r.Rotate(c, *role)
		if err != nil {
			failf("rotate: %v", err)
		}
		logger.Info("rotated",
			"old", res.Old.ShortFingerprint(),
			"new", res.New.ShortFingerprint(),
			"path", res.New.Path.String(),
		)
	}

	if err := store.Persist(r.Export()); err != nil {
		failf("persist state: %v", err)
	}
	for _, rec := range r.Records() {
		fmt.Printf("%-10s gen=%d %-32s %s\n", rec.State, rec.Generation, rec.Path, rec.ShortFingerprint())
	}
}

func runSeal(args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	configPath := fs.String("config", "", "path to keyring.yaml (optional)")
	seedHex := fs.String("seed-hex", "", "root seed as hex (mutually exclusive with -mnemonic)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic sentence")
	role := fs.String("role", "encryption", "recipient role")
	in := fs.String("in", "", "plaintext input file (default stdin)")
	out := fs.String("out", "", "envelope output file (default stdout, base64)")
	parseArgs(fs, args)

	r := loadedRegistry(*configPath, *seedHex, *mnemonic)
	target, err := r.EncryptionTarget(*role)
	if err != nil {
		failf("encryption target: %v", err)
	}

	plaintext, err := readInput(*in)
	if err != nil {
		failf("read input: %v", err)
	}
	codec := envelope.NewCodec()
	env, err := codec.Seal(plaintext, []envelope.Recipient{target})
	if err != nil {
		failf("seal: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		failf("encode envelope: %v", err)
	}
	writeOutput(*out, raw)
}

func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	configPath := fs.String("config", "", "path to keyring.yaml (optional)")
	seedHex := fs.String("seed-hex", "", "root seed as hex (mutually exclusive with -mnemonic)")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic sentence")
	in := fs.String("in", "", "envelope input file (default stdin, base64)")
	parseArgs(fs, args)

	r := loadedRegistry(*configPath, *seedHex, *mnemonic)

	raw, err := readInput(*in)
	if err != nil {
		failf("read input: %v", err)
	}
	if *in == "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			failf("decode envelope: %v", err)
		}
		raw = decoded
	}
	env, err := envelope.Unmarshal(raw)
	if err != nil {
		failf("decode envelope: %v", err)
	}

	codec := envelope.NewCodec()
	plaintext, err := codec.Open(env, r.CEKResolver())
	if err != nil {
		failf("open: %v", err)
	}
	if _, err := os.Stdout.Write(plaintext); err != nil {
		os.Exit(1)
	}
}

// loadedRegistry rebuilds a registry from the persisted state so fingerprints
// in old envelopes stay resolvable.
func loadedRegistry(configPath, seedHex, mnemonic string) *registry.Registry {
	cfg := keyringconfig.LoadFromPath(configPath)
	src, err := seedSource(seedHex, mnemonic)
	if err != nil {
		failf("seed: %v", err)
	}
	r, _, err := openRegistry(cfg, src)
	if err != nil {
		failf("registry: %v", err)
	}
	return r
}

func openRegistry(cfg keyringconfig.Config, src seed.Source) (*registry.Registry, *registry.StateStore, error) {
	r := registry.New(src)
	var store registry.StateStore
	store.Configure(cfg.Registry.StatePath, cfg.Registry.StateSecret)
	records, err := store.Bootstrap()
	if err != nil {
		return nil, nil, err
	}
	if len(records) > 0 {
		if err := r.Load(records); err != nil {
			return nil, nil, err
		}
	}
	return r, &store, nil
}

func seedSource(seedHex, mnemonic string) (seed.Source, error) {
	switch {
	case seedHex != "" && mnemonic != "":
		return nil, fmt.Errorf("-seed-hex and -mnemonic are mutually exclusive")
	case seedHex != "":
		raw, err := hex.DecodeString(strings.TrimSpace(seedHex))
		if err != nil {
			return nil, fmt.Errorf("decode seed hex: %w", err)
		}
		return seed.NewStatic(raw), nil
	case mnemonic != "":
		src, err := seed.FromMnemonic(mnemonic, "")
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("one of -seed-hex or -mnemonic is required")
	}
}

func parseArgs(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, raw []byte) {
	if path == "" {
		fmt.Println(base64.StdEncoding.EncodeToString(raw))
		return
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		failf("write %s: %v", path, err)
	}
}

func failf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format+"\n", args...); err != nil {
		os.Exit(1)
	}
	os.Exit(1)
}
