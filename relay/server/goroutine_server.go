package server

import (
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/Trinoooo/rawd/relay/config"
	"github.com/Trinoooo/rawd/relay/logs"
	"github.com/Trinoooo/rawd/relay/server/connections"
	"github.com/Trinoooo/rawd/utils"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	hubRegisterBufferSize = 10
	hubFrameBufferSize    = 1 << 10
)

// GoroutineRelay is the alternative engine: blocking accept loop plus one
// reader goroutine per client feeding a single hub goroutine. The hub
// owns the registry and performs every write, so per-sender ordering and
// chunk boundaries match the reactor engine.
type GoroutineRelay struct {
	mutex         sync.Mutex
	cfg           *config.Config
	listener      connections.IListener
	pool          gopool.Pool
	forward       ForwardFunc
	metricsHelper *MetricsHelper
	conns         map[int]connections.IConnection // hub-owned
	registerCh    chan connections.IConnection
	unregisterCh  chan connections.IConnection
	frames        chan *Frame
	connCount     atomic.Int64
	stop          chan struct{}
	done          sync.WaitGroup
}

func NewGoroutineRelay(cfg *config.Config) (*GoroutineRelay, error) {
	listener, err := connections.Listen(cfg.Host(), cfg.Port(), false)
	if err != nil {
		return nil, err
	}

	srv := &GoroutineRelay{
		cfg:           cfg,
		listener:      listener,
		pool:          gopool.NewPool("relay_goroutine", poolCapacity, gopool.NewConfig()),
		metricsHelper: NewMetricsHelper(cfg.PushGateway()),
		conns:         make(map[int]connections.IConnection),
		registerCh:    make(chan connections.IConnection, hubRegisterBufferSize),
		unregisterCh:  make(chan connections.IConnection, hubRegisterBufferSize),
		frames:        make(chan *Frame, hubFrameBufferSize),
		stop:          make(chan struct{}),
	}
	srv.forward = Chain(srv.broadcast, MetricsMw(srv.metricsHelper), LogMw)
	return srv, nil
}

func (gr *GoroutineRelay) Addr() net.Addr {
	return gr.listener.Addr()
}

func (gr *GoroutineRelay) Serve() error {
	logs.Info("relay listening", zap.Stringer("addr", gr.listener.Addr()))
	gr.done.Add(1)
	gr.pool.Go(gr.runHub)

	for {
		conn, err := gr.listener.Accept()
		if err != nil {
			if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.ECONNABORTED) {
				continue
			}
			if errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.EINVAL) {
				// Close called, exit gracefully
				gr.done.Wait()
				return nil
			}
			e := errs.NewAcceptErr().WithErr(err)
			logs.Error(e.Error())
			continue
		}

		if max := gr.cfg.MaxConns(); max > 0 && gr.connCount.Load() >= int64(max) {
			logs.Warn(errs.NewConnLimitErr().Error(), zap.Stringer("remote_addr", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}

		gr.connCount.Add(1)
		gr.metricsHelper.ConnectionAcceptCounter.Inc()
		select {
		case gr.registerCh <- conn:
		case <-gr.stop:
			_ = conn.Close()
		}
	}
}

func (gr *GoroutineRelay) runHub() {
	defer utils.HandlePanic(func() { gr.done.Done() })

	for {
		select {
		case <-gr.stop:
			// shutdown wakes blocked readers, then the fds are released
			for _, conn := range gr.conns {
				_ = syscall.Shutdown(conn.RawFd(), syscall.SHUT_RDWR)
				_ = conn.Close()
			}
			return
		case conn := <-gr.registerCh:
			gr.conns[conn.RawFd()] = conn
			gr.metricsHelper.LiveConnectionsGauge.Inc()
			logs.Info("accept connection", zap.Stringer("remote_addr", conn.RemoteAddr()), zap.Int("fd", conn.RawFd()))
			gr.done.Add(1)
			gr.pool.Go(func() { gr.readLoop(conn) })
		case conn := <-gr.unregisterCh:
			gr.dropConn(conn, nil)
		case frame := <-gr.frames:
			// frames already read from a since-dropped sender still go out
			_ = gr.forward(frame)
		}
	}
}

func (gr *GoroutineRelay) readLoop(conn connections.IConnection) {
	defer utils.HandlePanic(func() { gr.done.Done() })

	buf := make([]byte, consts.MaxBufSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
		}
		if err != nil || n == 0 {
			select {
			case gr.unregisterCh <- conn:
			case <-gr.stop:
			}
			return
		}

		// the buffer is reused, hand the hub its own copy
		data := make([]byte, n)
		copy(data, buf)
		select {
		case gr.frames <- &Frame{SrcFd: conn.RawFd(), Data: data}:
		case <-gr.stop:
			return
		}
	}
}

func (gr *GoroutineRelay) broadcast(frame *Frame) error {
	var failed []connections.IConnection
	for fd, peer := range gr.conns {
		if fd == frame.SrcFd {
			continue
		}
		if err := writeFull(peer, frame.Data); err != nil {
			logs.Error(errs.NewWriteSocketErr().WithErr(err).Error(), zap.Int("fd", fd))
			failed = append(failed, peer)
		}
	}

	for _, peer := range failed {
		gr.dropConn(peer, nil)
	}
	return nil
}

func (gr *GoroutineRelay) dropConn(conn connections.IConnection, cause error) {
	cur, live := gr.conns[conn.RawFd()]
	if !live || cur != conn {
		// reader and broadcaster may race to report the same peer, and a
		// stale handle's fd may already belong to a newer connection
		return
	}
	delete(gr.conns, conn.RawFd())
	// wake a reader still parked on this fd before it is released
	_ = syscall.Shutdown(conn.RawFd(), syscall.SHUT_RDWR)
	_ = conn.Close()
	gr.connCount.Add(-1)
	gr.metricsHelper.LiveConnectionsGauge.Dec()
	if cause != nil {
		logs.Info("connection dropped", zap.Int("fd", conn.RawFd()), zap.Error(cause))
	} else {
		logs.Info("connection closed", zap.Int("fd", conn.RawFd()))
	}
}

func (gr *GoroutineRelay) Close() error {
	gr.mutex.Lock()
	defer gr.mutex.Unlock()

	select {
	case <-gr.stop:
		return nil
	default:
	}
	close(gr.stop)

	// shutdown first so a blocked accept wakes before the fd is released
	_ = syscall.Shutdown(gr.listener.RawFd(), syscall.SHUT_RDWR)
	err := gr.listener.Close()
	gr.done.Wait()
	return err
}
