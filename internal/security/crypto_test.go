package security_test

import (
	"errors"
	"testing"

	"github.com/Rrens/workspace-sync/internal/security"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"state vector", "\x01\x02\x00\xff\x10"},
		{"unicode", "unicode: 日本語 中文 한국어"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			decrypted, err := encryptor.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}

			if string(decrypted) != tt.plaintext {
				t.Errorf("decrypted text does not match: got %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptor_EncryptString(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	ciphertext, err := encryptor.EncryptString("cloud-token")
	if err != nil {
		t.Fatalf("encrypt string failed: %v", err)
	}

	decrypted, err := encryptor.DecryptString(ciphertext)
	if err != nil {
		t.Fatalf("decrypt string failed: %v", err)
	}

	if decrypted != "cloud-token" {
		t.Errorf("decrypted text does not match: got %q", decrypted)
	}
}

func TestEncryptor_CBOR(t *testing.T) {
	encryptor, err := security.NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	type payload struct {
		StateVector []byte
		DocState    []byte
	}
	in := payload{StateVector: []byte{1, 2}, DocState: []byte("doc")}

	sealed, err := encryptor.EncryptCBOR(in)
	if err != nil {
		t.Fatalf("encrypt cbor failed: %v", err)
	}

	var out payload
	if err := encryptor.DecryptCBOR(sealed, &out); err != nil {
		t.Fatalf("decrypt cbor failed: %v", err)
	}

	if string(out.StateVector) != string(in.StateVector) || string(out.DocState) != string(in.DocState) {
		t.Errorf("payload mismatch: got %+v, want %+v", out, in)
	}
}

func TestEncryptor_InvalidKeyLength(t *testing.T) {
	for _, n := range []int{0, 15, 17, 31, 33} {
		if _, err := security.NewEncryptor(make([]byte, n)); err == nil {
			t.Errorf("expected error for key length %d, got nil", n)
		}
	}
}

func TestEncryptor_ShortCiphertext(t *testing.T) {
	encryptor, _ := security.NewEncryptor(testKey())

	_, err := encryptor.Decrypt([]byte{1, 2, 3})
	if !errors.Is(err, security.ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestEncryptor_DifferentCiphertexts(t *testing.T) {
	encryptor, _ := security.NewEncryptor(testKey())
	plaintext := []byte("same plaintext")

	ciphertext1, _ := encryptor.Encrypt(plaintext)
	ciphertext2, _ := encryptor.Encrypt(plaintext)

	// Same plaintext should produce different ciphertexts (due to random nonce)
	if string(ciphertext1) == string(ciphertext2) {
		t.Error("expected different ciphertexts for same plaintext")
	}
}

func TestNewEncryptorFromSecret(t *testing.T) {
	a, err := security.NewEncryptorFromSecret("collab-secret", security.CollabKeyInfo(1))
	if err != nil {
		t.Fatalf("failed to derive encryptor: %v", err)
	}
	again, _ := security.NewEncryptorFromSecret("collab-secret", security.CollabKeyInfo(1))
	other, _ := security.NewEncryptorFromSecret("collab-secret", security.CollabKeyInfo(2))

	sealed, _ := a.Encrypt([]byte("payload"))

	if _, err := again.Decrypt(sealed); err != nil {
		t.Errorf("same secret and info should decrypt: %v", err)
	}
	if _, err := other.Decrypt(sealed); err == nil {
		t.Error("expected a different uid key to fail decryption")
	}

	if _, err := security.NewEncryptorFromSecret("", "info"); err == nil {
		t.Error("expected error for empty secret")
	}
}
