package mock

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/mosaicnetworks/netharness/src/crypto"
	"github.com/mosaicnetworks/netharness/src/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMock(t *testing.T, b *Builder) (*Controller, *net.Client) {
	c, err := b.WithLogger(common.NewTestEntry(t, "mock")).Build()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	t.Cleanup(c.Stop)

	client := net.NewClient(c.Addr(), 2, time.Second, common.NewTestEntry(t, "client"))
	t.Cleanup(func() { client.Close() })
	return c, client
}

func block(height uint64, parent []byte) net.Block {
	return net.Block{
		Header: net.Header{
			ID:     crypto.SHA256([]byte{byte(height), 0xFE}),
			Parent: parent,
			Height: height,
		},
	}
}

func TestHandshakeExecutedAtLeastOnce(t *testing.T) {
	genesis := block(0, make([]byte, net.HashSize))
	c, client := newTestMock(t, NewBuilder().
		WithGenesisBlock(genesis).
		WithProtocolVersion(Bft))

	resp, err := client.Handshake([]byte("nonce"))
	require.NoError(t, err)
	assert.Equal(t, uint32(Bft), resp.Version)
	assert.Equal(t, genesis.Header.ID, resp.Block0)

	code := c.FinishAndVerify(func(v *Verifier) bool {
		return v.MethodExecutedAtLeastOnce(Handshake)
	})
	assert.Equal(t, Success, code)
}

func TestFinishAndVerify_NeverCalled(t *testing.T) {
	c, _ := newTestMock(t, NewBuilder())

	code := c.FinishAndVerify(func(v *Verifier) bool {
		return v.MethodExecutedAtLeastOnce(Handshake)
	})
	assert.Equal(t, Failure, code)

	code = c.FinishAndVerify(func(v *Verifier) bool {
		return v.MethodNeverExecuted(PullBlocks)
	})
	assert.Equal(t, Success, code)
}

func TestFinishAndVerify_StopsAcceptingCalls(t *testing.T) {
	c, client := newTestMock(t, NewBuilder())

	_, err := client.Tip()
	require.NoError(t, err)

	c.FinishAndVerify(func(v *Verifier) bool { return true })

	_, err = client.Tip()
	assert.Error(t, err)
	assert.Equal(t, 1, c.Verifier().Count(Tip))
}

func TestWrongGenesisHash(t *testing.T) {
	override := crypto.SHA256([]byte("other"))
	_, client := newTestMock(t, NewBuilder().WithGenesisHash(override))

	resp, err := client.Handshake(nil)
	require.NoError(t, err)
	assert.Equal(t, override, resp.Block0)
	assert.Equal(t, uint32(GenesisPraos), resp.Version)
}

func TestTip(t *testing.T) {
	genesis := DefaultGenesisBlock()
	tip := block(1, genesis.Header.ID)
	c, client := newTestMock(t, NewBuilder())

	h, err := client.Tip()
	require.NoError(t, err)
	assert.Equal(t, genesis.Header.ID, h.ID)

	c.SetTipBlock(tip)
	h, err = client.Tip()
	require.NoError(t, err)
	assert.Equal(t, tip.Header.ID, h.ID)
	assert.Equal(t, uint64(1), h.Height)
}

func TestPullIsRestartable(t *testing.T) {
	genesis := DefaultGenesisBlock()
	tip := block(1, genesis.Header.ID)
	_, client := newTestMock(t, NewBuilder().WithTipBlock(tip))

	for i := 0; i < 2; i++ {
		var heights []uint64
		err := client.PullBlocksToTip(nil, func(b *net.Block) error {
			heights = append(heights, b.Header.Height)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 1}, heights)
	}

	var heights []uint64
	err := client.PullHeaders([][]byte{genesis.Header.ID}, tip.Header.ID, func(h *net.Header) error {
		heights = append(heights, h.Height)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, heights)

	count := 0
	err = client.PullBlocks([][]byte{tip.Header.ID}, genesis.Header.ID, func(b *net.Block) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInvalidRequest(t *testing.T) {
	c, client := newTestMock(t, NewBuilder())

	err := client.GetHeaders([][]byte{{1, 2, 3}}, func(h *net.Header) error { return nil })
	var invalid *net.InvalidRequestError
	require.True(t, errors.As(err, &invalid), "err: %v", err)
	assert.Contains(t, invalid.Message, "expected 32 bytes, got 3")

	// The connection is still usable after an invalid request
	_, err = client.Tip()
	require.NoError(t, err)

	code := c.FinishAndVerify(func(v *Verifier) bool {
		return v.MethodExecutedExactly(GetHeaders, 1) && v.MethodExecutedExactly(Tip, 1)
	})
	assert.Equal(t, Success, code)
}

func TestGetFragments(t *testing.T) {
	f := net.Fragment{ID: crypto.SHA256([]byte("f1")), Content: []byte("payload")}
	_, client := newTestMock(t, NewBuilder().WithFragments(f))

	var got []net.Fragment
	err := client.GetFragments([][]byte{f.ID, crypto.SHA256([]byte("unknown"))}, func(fr *net.Fragment) error {
		got = append(got, *fr)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.Content, got[0].Content)
}

func TestUploadAndPush(t *testing.T) {
	genesis := DefaultGenesisBlock()
	c, client := newTestMock(t, NewBuilder())

	ack, err := client.UploadBlocks([]net.Block{block(1, genesis.Header.ID), block(2, genesis.Header.ID)})
	require.NoError(t, err)
	assert.Equal(t, 2, ack.Received)

	ack, err = client.PushHeaders([]net.Header{block(3, genesis.Header.ID).Header})
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Received)

	calls := c.Verifier().Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, UploadBlocks, calls[0].Method)
	assert.Equal(t, PushHeaders, calls[1].Method)
	assert.Equal(t, 0, calls[0].Ordinal)
	assert.Equal(t, 1, calls[1].Ordinal)
}

func TestConcurrentCalls(t *testing.T) {
	c, _ := newTestMock(t, NewBuilder())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := net.NewClient(c.Addr(), 1, time.Second, common.NewTestEntry(t, "client"))
			defer client.Close()
			for j := 0; j < 5; j++ {
				if _, err := client.Handshake(nil); err != nil {
					t.Errorf("err: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	code := c.FinishAndVerify(func(v *Verifier) bool {
		return v.MethodExecutedExactly(Handshake, 40)
	})
	assert.Equal(t, Success, code)

	seen := make(map[int]bool)
	for _, e := range c.Verifier().Calls() {
		seen[e.Ordinal] = true
	}
	assert.Len(t, seen, 40)
}

func TestFinishAndVerifyWithin(t *testing.T) {
	c, client := newTestMock(t, NewBuilder())

	go func() {
		time.Sleep(100 * time.Millisecond)
		client.Handshake(nil)
	}()

	code := c.FinishAndVerifyWithin(5*time.Second, func(v *Verifier) bool {
		return v.MethodExecutedAtLeastOnce(Handshake)
	})
	assert.Equal(t, Success, code)
}

func TestFinishAndVerifyWithin_Timeout(t *testing.T) {
	c, _ := newTestMock(t, NewBuilder())

	start := time.Now()
	code := c.FinishAndVerifyWithin(200*time.Millisecond, func(v *Verifier) bool {
		return v.MethodExecutedAtLeastOnce(Handshake)
	})
	assert.Equal(t, Failure, code)
	assert.True(t, time.Since(start) >= 200*time.Millisecond)
}

func TestParse(t *testing.T) {
	m, err := ParseMethodType("PullBlocksToTip")
	require.NoError(t, err)
	assert.Equal(t, PullBlocksToTip, m)

	_, err = ParseMethodType("Nope")
	assert.Error(t, err)

	v, err := ParseProtocolVersion("bft")
	require.NoError(t, err)
	assert.Equal(t, Bft, v)
	assert.Equal(t, "GenesisPraos", GenesisPraos.String())
}
