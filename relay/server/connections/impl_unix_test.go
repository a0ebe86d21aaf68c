//go:build unix

package connections

import (
	"net"
	"testing"

	"github.com/Trinoooo/rawd/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAcceptRoundtrip(t *testing.T) {
	listener, err := Listen("127.0.0.1", 0, false)
	require.Nil(t, err)
	defer listener.Close()

	addr := listener.Addr()
	require.NotNil(t, addr)

	client, err := net.Dial("tcp", addr.String())
	require.Nil(t, err)
	defer client.Close()

	conn, err := listener.Accept()
	require.Nil(t, err)
	defer conn.Close()

	_, err = client.Write([]byte("ping"))
	require.Nil(t, err)

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	_, err = conn.Write([]byte("pong"))
	require.Nil(t, err)

	n, err = client.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestListenAddrInUse(t *testing.T) {
	first, err := Listen("127.0.0.1", 0, false)
	require.Nil(t, err)
	defer first.Close()

	port := first.Addr().(*net.TCPAddr).Port
	_, err = Listen("127.0.0.1", port, false)
	require.NotNil(t, err)
	assert.Equal(t, int64(errs.SetupErrCode), errs.GetCode(err))
}

func TestAcceptReportsRemoteAddr(t *testing.T) {
	listener, err := Listen("127.0.0.1", 0, true)
	require.Nil(t, err)
	defer listener.Close()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.Nil(t, err)
	defer client.Close()

	conn, err := listener.Accept()
	require.Nil(t, err)
	defer conn.Close()

	remote := conn.RemoteAddr().(*net.TCPAddr)
	local := client.LocalAddr().(*net.TCPAddr)
	assert.Equal(t, local.Port, remote.Port)
}
