package net

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hash(b byte) []byte {
	h := make([]byte, HashSize)
	for i := range h {
		h[i] = b
	}
	return h
}

func testHeader(height uint64) Header {
	return Header{
		ID:      hash(byte(height + 1)),
		Parent:  hash(byte(height)),
		Height:  height,
		Epoch:   0,
		Slot:    uint32(height),
		Version: 1,
	}
}

func testBlock(height uint64) Block {
	return Block{
		Header:    testHeader(height),
		Fragments: [][]byte{[]byte("fragment")},
	}
}

// newServer starts a TCP transport and serves its RPCs with handler until the
// test ends.
func newServer(t *testing.T, handler func(rpc RPC)) *NetworkTransport {
	trans, err := NewTCPTransport("127.0.0.1:0", "", time.Second, common.NewTestEntry(t, "server"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	go trans.Listen()
	go func() {
		for {
			select {
			case rpc := <-trans.Consumer():
				handler(rpc)
			case <-trans.ShutdownCh():
				return
			}
		}
	}()
	t.Cleanup(func() { trans.Close() })
	return trans
}

func newTestClient(t *testing.T, trans *NetworkTransport) *Client {
	c := NewClient(trans.LocalAddr(), 2, time.Second, common.NewTestEntry(t, "client"))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNetworkTransport_StartStop(t *testing.T) {
	trans, err := NewTCPTransport("127.0.0.1:0", "", time.Second, common.NewTestEntry(t, "server"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	go trans.Listen()
	trans.Close()
	if !trans.IsShutdown() {
		t.Fatalf("transport should be shut down")
	}
	// Closing twice is harmless
	trans.Close()
}

func TestNetworkTransport_Handshake(t *testing.T) {
	expected := HandshakeResponse{
		Version: 1,
		Block0:  hash(0xAA),
		NodeID:  hash(0xBB),
	}

	trans := newServer(t, func(rpc RPC) {
		req, ok := rpc.Command.(*HandshakeRequest)
		if !ok {
			rpc.Respond(nil, errors.New("unexpected command"))
			return
		}
		if string(req.Nonce) != "nonce" {
			rpc.Respond(nil, InvalidRequest("bad nonce"))
			return
		}
		rpc.Respond(&expected, nil)
	})

	client := newTestClient(t, trans)

	resp, err := client.Handshake([]byte("nonce"))
	require.NoError(t, err)
	if !reflect.DeepEqual(*resp, expected) {
		t.Fatalf("response mismatch: %#v %#v", *resp, expected)
	}

	// Listen for a second request on the pooled connection
	_, err = client.Handshake([]byte("other"))
	var invalid *InvalidRequestError
	require.True(t, errors.As(err, &invalid), "err: %v", err)
	assert.Equal(t, "bad nonce", invalid.Message)
}

func TestNetworkTransport_Tip(t *testing.T) {
	tip := testHeader(7)
	trans := newServer(t, func(rpc RPC) {
		rpc.Respond(&TipResponse{Header: tip}, nil)
	})
	client := newTestClient(t, trans)

	for i := 0; i < 5; i++ {
		h, err := client.Tip()
		require.NoError(t, err)
		assert.Equal(t, tip.Height, h.Height)
		assert.Equal(t, tip.ID, h.ID)
		assert.Equal(t, tip.Parent, h.Parent)
	}
}

func TestNetworkTransport_PullBlocks(t *testing.T) {
	var chain []Block
	for i := uint64(0); i < 10; i++ {
		chain = append(chain, testBlock(i))
	}

	trans := newServer(t, func(rpc RPC) {
		switch cmd := rpc.Command.(type) {
		case *PullBlocksRequest:
			if len(cmd.To) != HashSize {
				rpc.Respond(nil, InvalidRequest("bad id"))
				return
			}
			rpc.Respond(BlockStream(chain[2:5]), nil)
		case *PullBlocksToTipRequest:
			rpc.Respond(BlockStream(chain), nil)
		default:
			rpc.Respond(nil, errors.New("unexpected command"))
		}
	})
	client := newTestClient(t, trans)

	var got []uint64
	err := client.PullBlocks([][]byte{hash(2)}, hash(5), func(b *Block) error {
		got = append(got, b.Header.Height)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4}, got)

	got = nil
	err = client.PullBlocksToTip([][]byte{hash(0)}, func(b *Block) error {
		got = append(got, b.Header.Height)
		assert.Equal(t, [][]byte{[]byte("fragment")}, b.Fragments)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 10)

	err = client.PullBlocks([][]byte{hash(2)}, []byte{1, 2, 3}, func(b *Block) error { return nil })
	var invalid *InvalidRequestError
	assert.True(t, errors.As(err, &invalid), "err: %v", err)
}

func TestNetworkTransport_EmptyStream(t *testing.T) {
	trans := newServer(t, func(rpc RPC) {
		rpc.Respond(HeaderStream(nil), nil)
	})
	client := newTestClient(t, trans)

	count := 0
	err := client.GetHeaders([][]byte{hash(1)}, func(h *Header) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNetworkTransport_GetFragments(t *testing.T) {
	trans := newServer(t, func(rpc RPC) {
		cmd, ok := rpc.Command.(*GetFragmentsRequest)
		if !ok {
			rpc.Respond(nil, errors.New("unexpected command"))
			return
		}
		var res []Fragment
		for _, id := range cmd.IDs {
			res = append(res, Fragment{ID: id, Content: []byte("content")})
		}
		rpc.Respond(FragmentStream(res), nil)
	})
	client := newTestClient(t, trans)

	var ids [][]byte
	err := client.GetFragments([][]byte{hash(1), hash(2)}, func(f *Fragment) error {
		ids = append(ids, f.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{hash(1), hash(2)}, ids)
}

func TestNetworkTransport_Upload(t *testing.T) {
	received := make(chan int, 2)
	trans := newServer(t, func(rpc RPC) {
		switch cmd := rpc.Command.(type) {
		case *UploadBlocksRequest:
			received <- len(cmd.Blocks)
			rpc.Respond(&Ack{Received: len(cmd.Blocks)}, nil)
		case *PushHeadersRequest:
			received <- len(cmd.Headers)
			rpc.Respond(&Ack{Received: len(cmd.Headers)}, nil)
		default:
			rpc.Respond(nil, errors.New("unexpected command"))
		}
	})
	client := newTestClient(t, trans)

	ack, err := client.UploadBlocks([]Block{testBlock(1), testBlock(2), testBlock(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, ack.Received)
	assert.Equal(t, 3, <-received)

	ack, err = client.PushHeaders([]Header{testHeader(4)})
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Received)
	assert.Equal(t, 1, <-received)
}

func TestNetworkTransport_RemoteError(t *testing.T) {
	trans := newServer(t, func(rpc RPC) {
		rpc.Respond(nil, errors.New("not implemented"))
	})
	client := newTestClient(t, trans)

	_, err := client.Tip()
	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "err: %v", err)
	assert.Equal(t, "not implemented", remote.Message)
}

func TestClient_Closed(t *testing.T) {
	trans := newServer(t, func(rpc RPC) {
		rpc.Respond(&TipResponse{}, nil)
	})
	client := NewClient(trans.LocalAddr(), 2, time.Second, common.NewTestEntry(t, "client"))
	_, err := client.Tip()
	require.NoError(t, err)

	client.Close()
	_, err = client.Tip()
	assert.Equal(t, ErrClientClosed, err)
}

func TestClient_Unreachable(t *testing.T) {
	trans, err := NewTCPTransport("127.0.0.1:0", "", time.Second, common.NewTestEntry(t, "server"))
	require.NoError(t, err)
	addr := trans.LocalAddr()
	trans.Close()

	client := NewClient(addr, 2, 200*time.Millisecond, common.NewTestEntry(t, "client"))
	defer client.Close()
	_, err = client.Tip()
	assert.Error(t, err)
}
