package signer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/transport"
)

func TestContentSize_SingleFullChunkPlusTerminal(t *testing.T) {
	headerLen := len("10000;chunk-signature=") + 64 + len("\r\n")
	terminalLen := len("0;chunk-signature=") + 64 + len("\r\n") + len("\r\n")
	want := int64(64*1024 + headerLen + 2 + terminalLen + 2)
	require.Equal(t, want, ContentSize(65536))
}

func TestContentSize_TwoFullChunksPlusPartial(t *testing.T) {
	fullHeaderLen := int64(len("10000;chunk-signature=") + 64 + len("\r\n"))
	partialHeaderLen := int64(len("1;chunk-signature=") + 64 + len("\r\n"))
	terminalLen := int64(len("0;chunk-signature=") + 64 + len("\r\n") + len("\r\n"))

	n := int64(2*64*1024 + 1)
	want := 2*int64(64*1024) + 2*fullHeaderLen + 2*2 + 1 + partialHeaderLen + 2 + terminalLen + 2
	require.Equal(t, want, ContentSize(n))
}

func TestContentSize_ZeroLength(t *testing.T) {
	terminalLen := len("0;chunk-signature=") + 64 + len("\r\n") + len("\r\n")
	require.Equal(t, int64(terminalLen+2), ContentSize(0))
}

func TestStartSigningChunksAndSignChunk_FramesRoundTrip(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-east-1", "s3")
	headers := transport.NewHeader()
	headers.Set("content-encoding", "aws-chunked")
	headers.Set("x-amz-decoded-content-length", "6")

	signedHeaders, state, err := s.StartSigningChunks("https://bucket.s3.amazonaws.com/key", "PUT", headers, fixedDate(t))
	require.NoError(t, err)
	require.Equal(t, StreamingPayload, signedHeaders.Get(HeaderContentSHA256))
	require.NotEmpty(t, state.Signature)

	chunk := []byte("abcdef")
	state = s.SignChunk(chunk, state)
	frame := FrameChunk(chunk, state)

	parts := bytes.SplitN(frame, []byte(";chunk-signature="), 2)
	require.Len(t, parts, 2)
	require.Equal(t, "6", string(parts[0]))
	rest := string(parts[1])
	require.True(t, strings.HasSuffix(rest, "\r\n"+"abcdef"+"\r\n"))

	terminal := s.SignChunk(nil, state)
	tframe := FrameTerminalChunk(terminal)
	require.True(t, strings.HasPrefix(string(tframe), "0;chunk-signature="))
	require.True(t, strings.HasSuffix(string(tframe), "\r\n\r\n"))
}

func TestSignChunk_Deterministic(t *testing.T) {
	prev := &ChunkedSigningData{
		Signature:  "seed",
		DateTime:   "20150830T123600Z",
		Date:       "20150830",
		Region:     "us-east-1",
		Service:    "s3",
		SigningKey: SigningKey("secret", "20150830", "us-east-1", "s3"),
	}
	a := New(Credential{}, "us-east-1", "s3").SignChunk([]byte("payload"), prev)
	b := New(Credential{}, "us-east-1", "s3").SignChunk([]byte("payload"), prev)
	require.Equal(t, a.Signature, b.Signature)
}
