package fragment

import (
	"encoding/json"

	"github.com/mosaicnetworks/netharness/src/crypto"
	"github.com/mosaicnetworks/netharness/src/wallet"
	"github.com/ugorji/go/codec"
)

func newCanonicalHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.Canonical = true
	return h
}

var canonicalHandle = newCanonicalHandle()

// Body is the signed part of a Fragment.
type Body struct {
	From    string `json:"from" codec:"from"`
	To      string `json:"to" codec:"to"`
	Value   uint64 `json:"value" codec:"value"`
	Counter uint32 `json:"counter" codec:"counter"`
}

// Marshal returns the canonical encoding of the body, which is what gets
// hashed and signed.
func (b *Body) Marshal() ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, canonicalHandle).Encode(b); err != nil {
		return nil, err
	}
	return buf, nil
}

// Fragment is a value transfer between two accounts.
type Fragment struct {
	ID string `json:"id"`
	Body
	Signature string `json:"signature"`
}

// New builds and signs a transfer of value from one wallet to another, using
// the current counter of the sender. The counter is not advanced.
func New(from, to *wallet.Wallet, value uint64) (*Fragment, error) {
	return newWithCounter(from, to, value, from.Counter())
}

func newWithCounter(from, to *wallet.Wallet, value uint64, counter uint32) (*Fragment, error) {
	f := &Fragment{
		Body: Body{
			From:    from.Address(),
			To:      to.Address(),
			Value:   value,
			Counter: counter,
		},
	}

	data, err := f.Body.Marshal()
	if err != nil {
		return nil, err
	}
	f.ID = crypto.SHA256Hex(data)

	sig, err := from.Sign(crypto.SHA256(data))
	if err != nil {
		return nil, err
	}
	f.Signature = sig

	return f, nil
}

// NewBatch builds n transfers with consecutive counters, starting at the
// current counter of the sender. The counter is not advanced.
func NewBatch(from, to *wallet.Wallet, value uint64, n int) ([]*Fragment, error) {
	res := make([]*Fragment, 0, n)
	counter := from.Counter()
	for i := 0; i < n; i++ {
		f, err := newWithCounter(from, to, value, counter+uint32(i))
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

// Verify checks that the fragment id matches its body and that it was signed
// by w.
func (f *Fragment) Verify(w *wallet.Wallet) bool {
	data, err := f.Body.Marshal()
	if err != nil {
		return false
	}
	if crypto.SHA256Hex(data) != f.ID {
		return false
	}
	return w.Verify(crypto.SHA256(data), f.Signature)
}

// JSON returns the body posted to the node.
func (f *Fragment) JSON() (json.RawMessage, error) {
	return json.Marshal(f)
}
