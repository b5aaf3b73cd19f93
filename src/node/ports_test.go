package node

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortsAvailable(t *testing.T) {
	free, err := FreeAddr()
	require.NoError(t, err)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	assert.NoError(t, CheckPortsAvailable(free, ""))

	err = CheckPortsAvailable(free, busy.Addr().String())

	var puErr *PortUnavailableError
	require.True(t, errors.As(err, &puErr), "err: %v", err)
	assert.Equal(t, busy.Addr().(*net.TCPAddr).Port, puErr.Port)
}
