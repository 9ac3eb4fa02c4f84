package privacylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func capture(t *testing.T, log func(*slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	log(logger)

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return out
}

func TestSecretsAreRedacted(t *testing.T) {
	out := capture(t, func(l *slog.Logger) {
		l.InfoContext(context.Background(), "unlock",
			"passphrase", "hunter2",
			"seed_len", 32,
			"mnemonic", "legal winner thank ...",
		)
	})
	for _, key := range []string{"passphrase", "seed_len", "mnemonic"} {
		if out[key] != redactedValue {
			t.Fatalf("%s leaked: %v", key, out[key])
		}
	}
}

func TestFingerprintsAreDigested(t *testing.T) {
	out := capture(t, func(l *slog.Logger) {
		l.Info("resolve", "fingerprint", "x1-C4NSCeULpuAvgS", "index", 3)
	})
	if _, plain := out["fingerprint"]; plain {
		t.Fatal("fingerprint logged verbatim")
	}
	digest, ok := out["fingerprint_fp"].(string)
	if !ok || !strings.HasPrefix(digest, "fp_") {
		t.Fatalf("digested fingerprint missing: %v", out)
	}
	if out["index"] != float64(3) {
		t.Fatal("benign attribute was altered")
	}
}

func TestDigestIDStableWithinProcess(t *testing.T) {
	if DigestID("x1-abc") != DigestID("x1-abc") {
		t.Fatal("digest not stable within one process")
	}
	if DigestID("x1-abc") == DigestID("x1-abd") {
		t.Fatal("distinct values collided")
	}
	if DigestID("  ") != "" {
		t.Fatal("blank value should digest to empty string")
	}
}
