// Package v4a implements the deterministic P-256 key derivation and
// ECDSA-P256-SHA256 signing SigV4a needs, grounded on the same
// HMAC-chain style the parent signer package uses for SigV4's key
// derivation, adapted to the asymmetric scheme's bounded-counter search.
package v4a

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
)

// ErrCounterExhausted is returned when no counter in 1..254 yields a
// scalar below the P-256 group order's (n-2) bound. Cryptographically
// implausible; preserved as a hard failure rather than looping forever.
var ErrCounterExhausted = errors.New("v4a: counter search exhausted without a valid scalar")

const algorithmLabel = "AWS4-ECDSA-P256-SHA256"

// DerivePrivateKey computes the deterministic P-256 private key SigV4a
// derives from an AWS access key pair.
func DerivePrivateKey(accessKeyID, secretAccessKey string) (*ecdsa.PrivateKey, error) {
	curve := elliptic.P256()
	n := curve.Params().N
	nMinus2 := new(big.Int).Sub(n, big.NewInt(2))
	bound := leftPad32(nMinus2.Bytes())

	secret := append([]byte("AWS4A"), secretAccessKey...)

	for counter := 1; counter <= 254; counter++ {
		input := buildInputBuffer(accessKeyID, byte(counter))
		mac := hmac.New(sha256.New, secret)
		mac.Write(input)
		digest := mac.Sum(nil)

		if constantTimeGreater(digest, bound) {
			continue
		}

		d := new(big.Int).Add(new(big.Int).SetBytes(digest), big.NewInt(1))
		priv := new(ecdsa.PrivateKey)
		priv.PublicKey.Curve = curve
		priv.D = d
		priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())
		return priv, nil
	}
	return nil, ErrCounterExhausted
}

// buildInputBuffer assembles [0,0,0,1] || algorithmLabel || [0] ||
// accessKeyID || counter || [0,0,1,0], the fixed-format KDF context
// the derivation runs for each counter attempt.
func buildInputBuffer(accessKeyID string, counter byte) []byte {
	buf := make([]byte, 0, 4+len(algorithmLabel)+1+len(accessKeyID)+1+4)
	buf = append(buf, 0, 0, 0, 1)
	buf = append(buf, algorithmLabel...)
	buf = append(buf, 0)
	buf = append(buf, accessKeyID...)
	buf = append(buf, counter)
	buf = append(buf, 0, 0, 1, 0)
	return buf
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// constantTimeGreater reports whether a > b for two 32-byte big-endian
// values, without branching on their contents; the comparison against
// the (n-2) bound must not leak key material through timing.
func constantTimeGreater(a, b []byte) bool {
	var gt, eq int64 = 0, 1
	for i := 0; i < len(a); i++ {
		v1 := int64(a[i])
		v2 := int64(b[i])
		gt |= (v2 - v1) >> 8 & eq
		eq &= ((v1 ^ v2) - 1) >> 8 & 1
	}
	return gt != 0
}

// Sign produces a DER-encoded, hex-lower ECDSA-P256-SHA256 signature
// over stringToSign's SHA-256 digest.
func Sign(priv *ecdsa.PrivateKey, stringToSign string) (string, error) {
	digest := sha256.Sum256([]byte(stringToSign))
	der, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}
