package net

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/common"
)

func TestTCPTransport_BadAddr(t *testing.T) {
	_, err := NewTCPTransport("0.0.0.0:0", "", time.Second, common.NewTestEntry(t, "tcp"))
	if err != errNotAdvertisable {
		t.Fatalf("err: %v", err)
	}
}

func TestTCPTransport_WithAdvertise(t *testing.T) {
	trans, err := NewTCPTransport("0.0.0.0:0", "127.0.0.1:12345", time.Second, common.NewTestEntry(t, "tcp"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer trans.Close()
	if trans.AdvertiseAddr() != "127.0.0.1:12345" {
		t.Fatalf("bad: %v", trans.AdvertiseAddr())
	}
}
