package secrets

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	keeper, err := NewKeeper("unit-test-secret")
	if err != nil {
		t.Fatalf("NewKeeper: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple password", plaintext: "hunter2"},
		{name: "empty string", plaintext: ""},
		{name: "unicode", plaintext: "pässwörd-ünïcode"},
		{name: "long", plaintext: strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := keeper.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if encrypted == tt.plaintext && tt.plaintext != "" {
				t.Fatal("ciphertext equals plaintext")
			}

			decrypted, err := keeper.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if decrypted != tt.plaintext {
				t.Errorf("roundtrip = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	keeper, err := NewKeeper("unit-test-secret")
	if err != nil {
		t.Fatalf("NewKeeper: %v", err)
	}

	a, err := keeper.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := keeper.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	keeper, _ := NewKeeper("key-one")
	other, _ := NewKeeper("key-two")

	encrypted, err := keeper.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := other.Decrypt(encrypted); err == nil {
		t.Error("decryption with the wrong key succeeded")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	keeper, _ := NewKeeper("key")

	tests := []struct {
		name    string
		encoded string
	}{
		{name: "not base64", encoded: "%%%not-base64%%%"},
		{name: "too short", encoded: "QUJD"},
		{name: "empty", encoded: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := keeper.Decrypt(tt.encoded); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewKeeperRequiresSecret(t *testing.T) {
	if _, err := NewKeeper(""); err == nil {
		t.Error("empty secret accepted")
	}
}
