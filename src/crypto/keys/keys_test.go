package keys

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/netharness/src/crypto"
)

func TestPrivateKeyHexRoundTrip(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := ParsePrivateKeyHex(PrivateKeyHex(key))
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(nKey.D, key.D) || nKey.X.Cmp(key.X) != 0 || nKey.Y.Cmp(key.Y) != 0 {
		t.Fatalf("Keys do not match")
	}
}

func TestParsePrivateKeyRejectsBadLength(t *testing.T) {
	if _, err := ParsePrivateKey([]byte{1, 2, 3}); err == nil {
		t.Fatal("ParsePrivateKey should reject a short key")
	}
}

func TestSignAndVerify(t *testing.T) {
	key, _ := GenerateECDSAKey()
	other, _ := GenerateECDSAKey()

	msg := crypto.SHA256([]byte("fragment body"))

	r, s, err := Sign(key, msg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	encoded := EncodeSignature(r, s)
	dr, ds, err := DecodeSignature(encoded)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !Verify(&key.PublicKey, msg, dr, ds) {
		t.Fatal("signature should verify with the signer's key")
	}
	if Verify(&other.PublicKey, msg, dr, ds) {
		t.Fatal("signature should not verify with another key")
	}
}

func TestDecodeSignatureErrors(t *testing.T) {
	if _, _, err := DecodeSignature("abc"); err == nil {
		t.Fatal("expected error for a single component")
	}
	if _, _, err := DecodeSignature("!!|abc"); err == nil {
		t.Fatal("expected error for a malformed component")
	}
}

func TestAddress(t *testing.T) {
	key, _ := GenerateECDSAKey()

	addr := Address(&key.PublicKey)
	if len(addr) != 2+40 {
		t.Fatalf("address should have 42 characters, not %d (%s)", len(addr), addr)
	}
	if Address(ToPublicKey(FromPublicKey(&key.PublicKey))) != addr {
		t.Fatal("address should survive a public key round trip")
	}
}
