package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	key := func(fill byte) string {
		raw := make([]byte, 32)
		for i := range raw {
			raw[i] = fill
		}
		return base64.StdEncoding.EncodeToString(raw)
	}
	k, err := NewKeyring(key(1), key(2), key(3))
	if err != nil {
		t.Fatalf("failed to build keyring: %v", err)
	}
	return k
}

func TestNewKeyringRejectsBadSecrets(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	ok := base64.StdEncoding.EncodeToString(make([]byte, 32))

	if _, err := NewKeyring("", ok, ok); err == nil {
		t.Error("expected error for empty master secret")
	}
	if _, err := NewKeyring(ok, short, ok); err == nil {
		t.Error("expected error for short transit secret")
	}
	if _, err := NewKeyring(ok, ok, "not base64!!"); err == nil {
		t.Error("expected error for undecodable signing secret")
	}
}

func TestAtRestRoundTrip(t *testing.T) {
	k := testKeyring(t)

	for _, credential := range []string{"tok_live_abc123", "", "ünïcode-✓", strings.Repeat("x", 4096)} {
		blob, err := k.EncryptAtRest("user-1", credential)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		if !strings.Contains(blob, ":") {
			t.Errorf("blob %q missing nonce separator", blob)
		}

		got, err := k.DecryptAtRest("user-1", blob)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if got != credential {
			t.Errorf("round trip mismatch: got %q, want %q", got, credential)
		}
	}
}

func TestEncryptNonceUniqueness(t *testing.T) {
	k := testKeyring(t)

	first, err := k.EncryptAtRest("user-1", "same input")
	if err != nil {
		t.Fatal(err)
	}
	second, err := k.EncryptAtRest("user-1", "same input")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two encryptions of the same input produced identical blobs")
	}
}

func TestAtRestKeysArePerUser(t *testing.T) {
	k := testKeyring(t)

	blob, err := k.EncryptAtRest("user-1", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.DecryptAtRest("user-2", blob); err == nil {
		t.Error("another user's derived key decrypted the blob")
	}
}

func TestTransitKeyIsIndependent(t *testing.T) {
	k := testKeyring(t)

	atRest, err := k.EncryptAtRest("user-1", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.DecryptTransit(atRest); err == nil {
		t.Error("transit key decrypted an at-rest blob")
	}

	transit, err := k.EncryptTransit("secret")
	if err != nil {
		t.Fatal(err)
	}
	got, err := k.DecryptTransit(transit)
	if err != nil {
		t.Fatalf("transit round trip failed: %v", err)
	}
	if got != "secret" {
		t.Errorf("transit round trip mismatch: got %q", got)
	}
}

func TestDecryptRejectsCorruptBlob(t *testing.T) {
	k := testKeyring(t)

	blob, err := k.EncryptAtRest("user-1", "secret")
	if err != nil {
		t.Fatal(err)
	}

	for _, corrupt := range []string{
		"no-separator",
		"AAAA:" + strings.Split(blob, ":")[1], // wrong nonce length
		strings.Split(blob, ":")[0] + ":AAAAAAAAAAAAAAAAAAAAAA==",
	} {
		if _, err := k.DecryptAtRest("user-1", corrupt); err == nil {
			t.Errorf("corrupt blob %q decrypted without error", corrupt)
		}
	}
}

func TestSignAndVerify(t *testing.T) {
	k := testKeyring(t)
	now := time.Now()

	sig := k.Sign("tok_live_abc123", now)
	if err := k.VerifySignature("tok_live_abc123", now, sig, now.Add(5*time.Second)); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	k := testKeyring(t)
	now := time.Now()

	sig := k.Sign("tok_live_abc123", now)
	if err := k.VerifySignature("tok_live_evil", now, sig, now); err == nil {
		t.Error("tampered credential passed verification")
	}
	if err := k.VerifySignature("tok_live_abc123", now, sig+"00", now); err == nil {
		t.Error("tampered signature passed verification")
	}
}

func TestVerifyRejectsReplay(t *testing.T) {
	k := testKeyring(t)
	issued := time.Now()

	sig := k.Sign("tok_live_abc123", issued)
	if err := k.VerifySignature("tok_live_abc123", issued, sig, issued.Add(61*time.Second)); err == nil {
		t.Error("stale request passed verification")
	}
	if err := k.VerifySignature("tok_live_abc123", issued, sig, issued.Add(59*time.Second)); err != nil {
		t.Errorf("fresh request rejected: %v", err)
	}
}
