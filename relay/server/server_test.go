package server

import (
	"bytes"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/Trinoooo/rawd/relay/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engines = []string{consts.EngineReactor, consts.EngineGoroutine}

func startRelay(t *testing.T, engine string, overrides map[string]interface{}) IRelay {
	t.Helper()

	cfg, err := config.Load()
	require.Nil(t, err)
	cfg.Set(consts.KeyEngine, engine)
	cfg.Set(consts.KeyHost, "127.0.0.1")
	cfg.Set(consts.KeyPort, 0)
	for key, value := range overrides {
		cfg.Set(key, value)
	}

	srv, err := Build(cfg)
	require.Nil(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func dialRelay(t *testing.T, srv IRelay) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.Nil(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// settle gives the engine a beat to register freshly dialed clients.
func settle() {
	time.Sleep(100 * time.Millisecond)
}

func readN(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.Nil(t, err)
	return buf
}

func assertNoData(t *testing.T, conn net.Conn) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	require.NotNil(t, err)
	netErr, ok := err.(net.Error)
	require.True(t, ok, "expected timeout, got: %v", err)
	assert.True(t, netErr.Timeout())
}

func TestBroadcastExcludesSender(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			srv := startRelay(t, engine, nil)
			a := dialRelay(t, srv)
			b := dialRelay(t, srv)
			c := dialRelay(t, srv)
			settle()

			_, err := a.Write([]byte("hello"))
			require.Nil(t, err)

			assert.Equal(t, "hello", string(readN(t, b, 5)))
			assert.Equal(t, "hello", string(readN(t, c, 5)))
			assertNoData(t, a)
		})
	}
}

func TestDisconnectRemovesPeer(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			srv := startRelay(t, engine, nil)
			a := dialRelay(t, srv)
			b := dialRelay(t, srv)
			c := dialRelay(t, srv)
			settle()

			require.Nil(t, a.Close())
			settle()

			_, err := b.Write([]byte("ping"))
			require.Nil(t, err)

			assert.Equal(t, "ping", string(readN(t, c, 4)))
			assertNoData(t, b)
		})
	}
}

func TestLargeWriteIsRelayedWhole(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			srv := startRelay(t, engine, nil)
			a := dialRelay(t, srv)
			b := dialRelay(t, srv)
			settle()

			// 300 bytes arrive at the engine as two chunks, 255 then 45
			payload := make([]byte, 300)
			_, err := rand.Read(payload)
			require.Nil(t, err)

			_, err = a.Write(payload)
			require.Nil(t, err)

			got := readN(t, b, len(payload))
			assert.True(t, bytes.Equal(payload, got))
		})
	}
}

func TestByteStreamOrdering(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			srv := startRelay(t, engine, nil)
			a := dialRelay(t, srv)
			b := dialRelay(t, srv)
			settle()

			for _, part := range []string{"one", "two", "three"} {
				_, err := a.Write([]byte(part))
				require.Nil(t, err)
				time.Sleep(20 * time.Millisecond)
			}

			assert.Equal(t, "onetwothree", string(readN(t, b, 11)))
		})
	}
}

func TestConnLimitClosesSurplus(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			srv := startRelay(t, engine, map[string]interface{}{consts.KeyMaxConns: 2})
			dialRelay(t, srv)
			dialRelay(t, srv)
			settle()

			surplus := dialRelay(t, srv)
			settle()

			_ = surplus.SetReadDeadline(time.Now().Add(2 * time.Second))
			buf := make([]byte, 1)
			_, err := surplus.Read(buf)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestWriteFailurePeerIsolated(t *testing.T) {
	srv := startRelay(t, consts.EngineReactor, nil)
	sender := dialRelay(t, srv)
	stalled := dialRelay(t, srv)
	healthy := dialRelay(t, srv)
	settle()

	// shrink the stalled peer's receive window so its relay-side socket
	// buffer fills quickly
	_ = stalled.(*net.TCPConn).SetReadBuffer(4 * consts.KB)

	marker := []byte("still-getting-chunks")
	got := make(chan struct{})
	go func() {
		buf := make([]byte, 4*consts.KB)
		var tail []byte
		for {
			_ = healthy.SetReadDeadline(time.Now().Add(10 * time.Second))
			n, err := healthy.Read(buf)
			if err != nil {
				return
			}
			tail = append(tail, buf[:n]...)
			if bytes.Contains(tail, marker) {
				close(got)
				return
			}
			if len(tail) > 1024 {
				tail = tail[len(tail)-len(marker):]
			}
		}
	}()

	// flood until the stalled peer overflows and is dropped; the sender
	// must never observe an error
	payload := bytes.Repeat([]byte("x"), consts.KB)
	for i := 0; i < 2048; i++ {
		_, err := sender.Write(payload)
		require.Nil(t, err)
	}
	settle()

	_, err := sender.Write(marker)
	require.Nil(t, err)

	select {
	case <-got:
	case <-time.After(10 * time.Second):
		t.Fatal("healthy peer stopped receiving after another peer's write failure")
	}
}

func TestSetupFailsWhenPortBound(t *testing.T) {
	srv := startRelay(t, consts.EngineReactor, nil)
	port := srv.Addr().(*net.TCPAddr).Port

	cfg, err := config.Load()
	require.Nil(t, err)
	cfg.Set(consts.KeyHost, "127.0.0.1")
	cfg.Set(consts.KeyPort, port)

	_, err = Build(cfg)
	require.NotNil(t, err)
	assert.Equal(t, int64(errs.SetupErrCode), errs.GetCode(err))
}

func TestBuildUnknownEngine(t *testing.T) {
	cfg, err := config.Load()
	require.Nil(t, err)
	cfg.Set(consts.KeyEngine, "bogus")

	_, err = Build(cfg)
	require.NotNil(t, err)
	assert.Equal(t, int64(errs.EngineNotFoundErrCode), errs.GetCode(err))
}
