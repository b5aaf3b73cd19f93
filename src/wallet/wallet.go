// Package wallet wraps an account key handed to the harness with the spending
// counter the node expects on every fragment.
package wallet

import (
	"crypto/ecdsa"
	"sync/atomic"

	"github.com/mosaicnetworks/netharness/src/crypto/keys"
)

// Wallet is an account able to sign fragments. The counter must match the
// node's view of the account for a fragment to be accepted, so it is only
// advanced through ConfirmTransaction once the node accepted the fragment.
type Wallet struct {
	alias   string
	key     *ecdsa.PrivateKey
	address string
	counter uint32
}

// New generates a throwaway wallet.
func New(alias string) (*Wallet, error) {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}
	return FromKey(alias, key), nil
}

// FromKey wraps an existing private key.
func FromKey(alias string, key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		alias:   alias,
		key:     key,
		address: keys.Address(&key.PublicKey),
	}
}

// Alias returns the name of the wallet.
func (w *Wallet) Alias() string {
	return w.alias
}

// Address returns the account address.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKey returns the public half of the wallet key.
func (w *Wallet) PublicKey() *ecdsa.PublicKey {
	return &w.key.PublicKey
}

// Counter returns the counter to put in the next fragment.
func (w *Wallet) Counter() uint32 {
	return atomic.LoadUint32(&w.counter)
}

// SetCounter realigns the counter with the node, after a restart for example.
func (w *Wallet) SetCounter(c uint32) {
	atomic.StoreUint32(&w.counter, c)
}

// ConfirmTransaction advances the counter after a fragment was accepted.
func (w *Wallet) ConfirmTransaction() {
	atomic.AddUint32(&w.counter, 1)
}

// Sign signs data, usually a fragment id, and returns the encoded signature.
func (w *Wallet) Sign(data []byte) (string, error) {
	r, s, err := keys.Sign(w.key, data)
	if err != nil {
		return "", err
	}
	return keys.EncodeSignature(r, s), nil
}

// Verify checks a signature produced by Sign against this wallet's key.
func (w *Wallet) Verify(data []byte, sig string) bool {
	r, s, err := keys.DecodeSignature(sig)
	if err != nil {
		return false
	}
	return keys.Verify(&w.key.PublicKey, data, r, s)
}
