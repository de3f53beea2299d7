package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("featstore chunk payload"))
	b := Checksum([]byte("featstore chunk payload"))
	require.Equal(t, a, b)

	c := Checksum([]byte("featstore chunk payloae"))
	require.NotEqual(t, a, c)

	require.Equal(t, Checksum(nil), Checksum([]byte{}))
}
