// Package cose encodes and decodes the binary structures a relying party
// consumes: COSE EC2 public keys, authenticator data, and attestation
// objects. Everything here is pure and deterministic; encoding uses the
// CTAP2 canonical CBOR mode a conformant reader expects.
package cose

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// COSE constants for the single supported key shape: EC2 over P-256.
const (
	KeyTypeEC2 = 2
	CurveP256  = 1

	// AlgES256 is ECDSA with P-256 and SHA-256 (-7).
	AlgES256 int64 = -7
)

// uncompressedPointLen is the raw public key length: 0x04||X(32)||Y(32).
const uncompressedPointLen = 65

// CTAP2 requires canonical CBOR with sorted map keys.
var encMode, _ = cbor.CTAP2EncOptions().EncMode()

// ec2Key is COSE_Key with the integer labels of RFC 9052 §7.1.
type ec2Key struct {
	KeyType int    `cbor:"1,keyasint"`
	Alg     int64  `cbor:"3,keyasint"`
	Curve   int    `cbor:"-1,keyasint"`
	X       []byte `cbor:"-2,keyasint"`
	Y       []byte `cbor:"-3,keyasint"`
}

// EncodeKey encodes a 65-byte uncompressed P-256 point as a canonical
// COSE EC2 key with the given signature algorithm.
func EncodeKey(rawPublicKey []byte, alg int64) ([]byte, error) {
	if len(rawPublicKey) != uncompressedPointLen {
		return nil, errors.Errorf("cose: public key must be %d bytes, got %d", uncompressedPointLen, len(rawPublicKey))
	}
	if rawPublicKey[0] != 0x04 {
		return nil, errors.Errorf("cose: public key must be an uncompressed point (leading 0x04), got 0x%02x", rawPublicKey[0])
	}

	k := ec2Key{
		KeyType: KeyTypeEC2,
		Alg:     alg,
		Curve:   CurveP256,
		X:       rawPublicKey[1:33],
		Y:       rawPublicKey[33:65],
	}
	out, err := encMode.Marshal(&k)
	return out, errors.Wrap(err, "cose: encode EC2 key")
}

// DecodeKey parses a COSE EC2 key back into the uncompressed point and
// the declared algorithm. It is the inverse of EncodeKey.
func DecodeKey(data []byte) (rawPublicKey []byte, alg int64, err error) {
	var k ec2Key
	if err := cbor.Unmarshal(data, &k); err != nil {
		return nil, 0, errors.Wrap(err, "cose: decode EC2 key")
	}
	if k.KeyType != KeyTypeEC2 || k.Curve != CurveP256 {
		return nil, 0, errors.Errorf("cose: unsupported key type %d / curve %d", k.KeyType, k.Curve)
	}
	if len(k.X) != 32 || len(k.Y) != 32 {
		return nil, 0, errors.Errorf("cose: bad coordinate lengths %d/%d", len(k.X), len(k.Y))
	}
	raw := make([]byte, uncompressedPointLen)
	raw[0] = 0x04
	copy(raw[1:33], k.X)
	copy(raw[33:65], k.Y)
	return raw, k.Alg, nil
}
