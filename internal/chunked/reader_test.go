package chunked

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/signer"
	"github.com/prn-tf/awscore/internal/transport"
)

func startChunks(t *testing.T) (*signer.Signer, *signer.ChunkedSigningData) {
	t.Helper()
	s := signer.New(signer.Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-east-1", "s3")
	headers := transport.NewHeader()
	headers.Set("content-encoding", "aws-chunked")

	date, err := time.Parse(signer.DateTimeFormat, "20150830T123600Z")
	require.NoError(t, err)
	_, seed, err := s.StartSigningChunks("https://bucket.s3.amazonaws.com/key", "PUT", headers, date)
	require.NoError(t, err)
	return s, seed
}

func TestReader_ZeroLengthBodyEmitsOnlyTerminal(t *testing.T) {
	s, seed := startChunks(t)
	r := NewReader(strings.NewReader(""), s, seed)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "0;chunk-signature="))
	require.True(t, strings.HasSuffix(string(out), "\r\n\r\n"))
	require.Equal(t, ContentSize(0), int64(len(out)))
}

func TestReader_SingleFullChunkPlusTerminal(t *testing.T) {
	payload := bytes.Repeat([]byte{0}, 64*1024)
	s, seed := startChunks(t)
	r := NewReader(bytes.NewReader(payload), s, seed)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, ContentSize(int64(len(payload))), int64(len(out)))
	require.True(t, strings.HasPrefix(string(out), "10000;chunk-signature="))

	decoded := decodeChunks(t, out)
	require.Equal(t, payload, decoded)
}

func TestReader_MultiChunkRoundTripsPayload(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64*1024+100)
	s, seed := startChunks(t)
	r := NewReader(bytes.NewReader(payload), s, seed)

	framed, err := io.ReadAll(r)
	require.NoError(t, err)

	decoded := decodeChunks(t, framed)
	require.Equal(t, payload, decoded)
}

// decodeChunks is a minimal aws-chunked decoder used only to verify the
// Reader's framing round-trips the original payload exactly.
func decodeChunks(t *testing.T, framed []byte) []byte {
	t.Helper()
	var out []byte
	rest := framed
	for {
		i := bytes.IndexByte(rest, '\n')
		require.Greater(t, i, 0)
		header := string(rest[:i-1]) // strip trailing \r
		rest = rest[i+1:]

		semi := strings.IndexByte(header, ';')
		require.Greater(t, semi, 0)
		size, err := parseHexInt64(header[:semi])
		require.NoError(t, err)

		if size == 0 {
			require.True(t, strings.HasPrefix(string(rest), "\r\n"))
			break
		}
		out = append(out, rest[:size]...)
		rest = rest[size:]
		require.True(t, strings.HasPrefix(string(rest), "\r\n"))
		rest = rest[2:]
	}
	return out
}

var errBadHex = errors.New("bad hex digit")

func parseHexInt64(s string) (int64, error) {
	var v int64
	for _, c := range s {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int64(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int64(c-'a') + 10
		default:
			return 0, errBadHex
		}
	}
	return v, nil
}
