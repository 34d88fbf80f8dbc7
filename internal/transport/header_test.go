package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader_CaseInsensitiveLookupPreservesCasing(t *testing.T) {
	h := NewHeader()
	h.Set("X-Amz-Date", "20150830T123600Z")

	require.Equal(t, "20150830T123600Z", h.Get("x-amz-date"))
	require.True(t, h.Has("X-AMZ-DATE"))
	require.Contains(t, h.Keys(), "X-Amz-Date")
}

func TestHeader_AddAccumulatesSetReplaces(t *testing.T) {
	h := NewHeader()
	h.Add("Accept", "a")
	h.Add("accept", "b")
	require.Equal(t, []string{"a", "b"}, h.Values("Accept"))

	h.Set("Accept", "c")
	require.Equal(t, []string{"c"}, h.Values("accept"))

	h.Del("ACCEPT")
	require.False(t, h.Has("accept"))
}

func TestHeader_CloneIsDeep(t *testing.T) {
	h := NewHeader()
	h.Set("a", "1")
	c := h.Clone()
	c.Set("a", "2")
	require.Equal(t, "1", h.Get("a"))
	require.Equal(t, "2", c.Get("a"))
}
