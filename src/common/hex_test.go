package common

import (
	"bytes"
	"testing"
)

func TestHexRoundTrip(t *testing.T) {
	data := []byte{0x00, 0xab, 0x10, 0xff}

	enc := EncodeToString(data)
	if enc != "0X00AB10FF" {
		t.Fatalf("enc should be 0X00AB10FF, not %s", enc)
	}

	dec, err := DecodeFromString(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("dec should be %v, not %v", data, dec)
	}

	dec, err = DecodeFromString("00ab10ff")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, data) {
		t.Fatalf("unprefixed dec should be %v, not %v", data, dec)
	}
}
