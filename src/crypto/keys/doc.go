// Package keys implements the secp256k1 keys used to sign fragments.
//
// Wallets handed to the harness wrap an ecdsa.PrivateKey on the secp256k1
// curve. The address of a wallet is derived from the uncompressed form of its
// public key, and fragment signatures are plain ECDSA signatures over the
// fragment id.
package keys
