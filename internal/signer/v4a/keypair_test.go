package v4a

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerivePrivateKey_Deterministic(t *testing.T) {
	a, err := DerivePrivateKey("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY")
	require.NoError(t, err)
	b, err := DerivePrivateKey("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY")
	require.NoError(t, err)

	require.Equal(t, a.D, b.D)
	require.Equal(t, a.PublicKey.X, b.PublicKey.X)
	require.Equal(t, a.PublicKey.Y, b.PublicKey.Y)
	require.True(t, a.PublicKey.Curve.IsOnCurve(a.PublicKey.X, a.PublicKey.Y))
}

func TestDerivePrivateKey_DifferentCredentialsDiffer(t *testing.T) {
	a, err := DerivePrivateKey("AKID1", "secret1")
	require.NoError(t, err)
	b, err := DerivePrivateKey("AKID2", "secret2")
	require.NoError(t, err)
	require.NotEqual(t, a.D, b.D)
}

func TestSign_ProducesHexDER(t *testing.T) {
	priv, err := DerivePrivateKey("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY")
	require.NoError(t, err)

	sig, err := Sign(priv, "AWS4-ECDSA-P256-SHA256\n20150830T123600Z\nscope\ndigest")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	for _, c := range sig {
		require.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
	}
}

func TestConstantTimeGreater(t *testing.T) {
	small := make([]byte, 32)
	small[31] = 1
	large := make([]byte, 32)
	large[31] = 2

	require.True(t, constantTimeGreater(large, small))
	require.False(t, constantTimeGreater(small, large))
	require.False(t, constantTimeGreater(small, small))
}
