package crypto

import "testing"

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("hash should be %s, not %s", want, got)
	}
	if len(SHA256([]byte{})) != 32 {
		t.Fatal("hash should be 32 bytes")
	}
}
