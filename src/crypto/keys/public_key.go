package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"

	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/mosaicnetworks/netharness/src/crypto"
)

// ToPublicKey is a wrapper around elliptic.Unmarshal. The argument pub is
// expected to be the uncompressed form of a point on the curve, as returned by
// FromPublicKey.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey is a wrapper around elliptic.Marshal. It outputs the point in
// uncompressed form.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyHex returns the hexadecimal reprentation of the uncompressed form of
// the public key
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// Address returns the account address of a public key: the last 20 bytes of
// the SHA256 of its uncompressed form, hex encoded with the 0X prefix.
func Address(pub *ecdsa.PublicKey) string {
	h := crypto.SHA256(FromPublicKey(pub))
	return common.EncodeToString(h[len(h)-20:])
}
