package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPEM_Inline(t *testing.T) {
	b, err := LoadPEM(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("LoadPEM inline: %v", err)
	}
	if string(b) != testPublicKeyPEM {
		t.Error("LoadPEM should return inline PEM unchanged")
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	if _, err := LoadPEM("  "); err != ErrInvalidKey {
		t.Errorf("LoadPEM empty: want ErrInvalidKey, got %v", err)
	}
}

func TestLoadPEM_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte(testPublicKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := LoadPEM(path)
	if err != nil {
		t.Fatalf("LoadPEM file: %v", err)
	}
	if string(b) != testPublicKeyPEM {
		t.Error("LoadPEM should return file contents")
	}
}

func TestParsePrivateKey_PKCS8(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if signer == nil {
		t.Fatal("signer is nil")
	}
}

func TestParsePrivateKey_EC(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	pemStr := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	signer, err := ParsePrivateKey(pemStr)
	if err != nil {
		t.Fatalf("ParsePrivateKey EC: %v", err)
	}
	if _, ok := signer.Public().(*ecdsa.PublicKey); !ok {
		t.Error("expected ECDSA public key")
	}
}

func TestParsePrivateKey_Garbage(t *testing.T) {
	if _, err := ParsePrivateKey("not pem at all"); err == nil {
		t.Error("ParsePrivateKey should fail on garbage input")
	}
}

func TestParsePublicKey_PKIX(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if _, ok := pub.(*rsa.PublicKey); !ok {
		t.Error("expected RSA public key")
	}
}

func TestParsePublicKey_WrongBlockType(t *testing.T) {
	pemStr := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")}))
	if _, err := ParsePublicKey(pemStr); err != ErrInvalidKey {
		t.Errorf("ParsePublicKey wrong block type: want ErrInvalidKey, got %v", err)
	}
}
