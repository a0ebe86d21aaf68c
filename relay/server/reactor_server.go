package server

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/Trinoooo/rawd/relay/config"
	"github.com/Trinoooo/rawd/relay/logs"
	"github.com/Trinoooo/rawd/relay/server/connections"
	"github.com/Trinoooo/rawd/relay/server/poller"
	"github.com/Trinoooo/rawd/utils"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	poolCapacity  = 100
	waitBatchSize = 100
)

// ReactorRelay is the readiness-multiplexed engine. One event-loop
// goroutine owns the live set (listener plus client connections), blocks
// on the poller, dispatches listener readiness to accept and client
// readiness to the broadcast step. Membership changes only inside that
// goroutine, so the live set needs no locking.
type ReactorRelay struct {
	mutex         sync.Mutex
	cfg           *config.Config
	listener      connections.IListener
	p             poller.Poller
	conns         map[int]connections.IConnection
	pool          gopool.Pool
	forward       ForwardFunc
	metricsHelper *MetricsHelper
	stop          chan struct{}
	done          sync.WaitGroup
	serveErr      error
	buf           []byte
	// wakeup pipe, registered alongside the listener so Close can
	// interrupt a Wait with no other ready member
	wakeupR int
	wakeupW int
}

func NewReactorRelay(cfg *config.Config) (*ReactorRelay, error) {
	p, err := poller.New()
	if err != nil {
		return nil, errs.NewPollerCreateErr().WithErr(err)
	}

	listener, err := connections.Listen(cfg.Host(), cfg.Port(), true)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	var pipeFds [2]int
	if err := syscall.Pipe(pipeFds[:]); err != nil {
		_ = p.Close()
		_ = listener.Close()
		return nil, errs.NewSetupErr().WithErr(err)
	}

	srv := &ReactorRelay{
		cfg:           cfg,
		listener:      listener,
		p:             p,
		conns:         make(map[int]connections.IConnection),
		pool:          gopool.NewPool("relay_reactor", poolCapacity, gopool.NewConfig()),
		metricsHelper: NewMetricsHelper(cfg.PushGateway()),
		stop:          make(chan struct{}),
		buf:           make([]byte, consts.MaxBufSize),
		wakeupR:       pipeFds[0],
		wakeupW:       pipeFds[1],
	}
	srv.forward = Chain(srv.broadcast, MetricsMw(srv.metricsHelper), LogMw)
	return srv, nil
}

func (rr *ReactorRelay) Addr() net.Addr {
	return rr.listener.Addr()
}

func (rr *ReactorRelay) Serve() error {
	changes := []poller.Pevent{
		{Fd: rr.listener.RawFd(), Operation: poller.OpRead, Flag: poller.FlagAdd},
		{Fd: rr.wakeupR, Operation: poller.OpRead, Flag: poller.FlagAdd},
	}
	if err := rr.p.Register(changes); err != nil {
		return errs.NewPollerRegisterErr().WithErr(err)
	}

	logs.Info("relay listening", zap.Stringer("addr", rr.listener.Addr()))
	rr.done.Add(1)
	rr.pool.Go(rr.run)
	rr.done.Wait()
	return rr.serveErr
}

func (rr *ReactorRelay) run() {
	defer utils.HandlePanic(func() { rr.done.Done() })

	evts := make([]poller.Pevent, waitBatchSize)
	for {
		n, err := rr.p.Wait(evts)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			select {
			case <-rr.stop:
				// Close tore the poller down
			default:
				rr.serveErr = errs.NewPollerWaitErr().WithErr(err)
			}
			return
		}

		for i := 0; i < n; i++ {
			evt := evts[i]
			switch evt.Fd {
			case rr.wakeupR:
				return
			case rr.listener.RawFd():
				rr.acceptOne()
			default:
				conn, live := rr.conns[evt.Fd]
				if !live {
					// stale event for a peer dropped earlier in this batch
					continue
				}
				rr.forwardFrom(conn)
			}
		}
	}
}

func (rr *ReactorRelay) acceptOne() {
	conn, err := rr.listener.Accept()
	if err != nil {
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.ECONNABORTED) {
			return
		}
		// an accept failure leaves every connected client untouched
		e := errs.NewAcceptErr().WithErr(err)
		logs.Error(e.Error())
		return
	}

	if max := rr.cfg.MaxConns(); max > 0 && len(rr.conns) >= max {
		logs.Warn(errs.NewConnLimitErr().Error(), zap.Stringer("remote_addr", conn.RemoteAddr()))
		_ = conn.Close()
		return
	}

	changes := []poller.Pevent{{Fd: conn.RawFd(), Operation: poller.OpRead, Flag: poller.FlagAdd}}
	if err := rr.p.Register(changes); err != nil {
		e := errs.NewPollerRegisterErr().WithErr(err)
		logs.Error(e.Error(), zap.Int("fd", conn.RawFd()))
		_ = conn.Close()
		return
	}

	rr.conns[conn.RawFd()] = conn
	rr.metricsHelper.ConnectionAcceptCounter.Inc()
	rr.metricsHelper.LiveConnectionsGauge.Inc()
	logs.Info("accept connection", zap.Stringer("remote_addr", conn.RemoteAddr()), zap.Int("fd", conn.RawFd()))
}

func (rr *ReactorRelay) forwardFrom(conn connections.IConnection) {
	n, err := conn.Read(rr.buf)
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			// readiness already consumed earlier in this batch
			return
		}
		rr.dropConn(conn, errs.NewReadSocketErr().WithErr(err))
		return
	}
	if n == 0 {
		// orderly close
		rr.dropConn(conn, nil)
		return
	}

	_ = rr.forward(&Frame{SrcFd: conn.RawFd(), Data: rr.buf[:n]})
}

func (rr *ReactorRelay) broadcast(frame *Frame) error {
	var failed []connections.IConnection
	for fd, peer := range rr.conns {
		if fd == frame.SrcFd {
			continue
		}
		if err := writeFull(peer, frame.Data); err != nil {
			// isolate the broken peer, everyone else still gets the chunk
			logs.Error(errs.NewWriteSocketErr().WithErr(err).Error(), zap.Int("fd", fd))
			failed = append(failed, peer)
		}
	}

	for _, peer := range failed {
		rr.dropConn(peer, nil)
	}
	return nil
}

func (rr *ReactorRelay) dropConn(conn connections.IConnection, cause error) {
	delete(rr.conns, conn.RawFd())
	changes := []poller.Pevent{{Fd: conn.RawFd(), Operation: poller.OpRead, Flag: poller.FlagDelete}}
	if err := rr.p.Register(changes); err != nil {
		logs.Warn(errs.NewPollerRegisterErr().WithErr(err).Error(), zap.Int("fd", conn.RawFd()))
	}
	if err := conn.Close(); err != nil {
		logs.Warn(fmt.Sprintf("close connection failed. err: %v", err), zap.Int("fd", conn.RawFd()))
	}
	rr.metricsHelper.LiveConnectionsGauge.Dec()
	if cause != nil {
		logs.Info("connection dropped", zap.Int("fd", conn.RawFd()), zap.Error(cause))
	} else {
		logs.Info("connection closed", zap.Int("fd", conn.RawFd()))
	}
}

// writeFull retries short writes so every peer sees the whole chunk.
func writeFull(conn connections.IConnection, data []byte) error {
	for written := 0; written < len(data); {
		n, err := conn.Write(data[written:])
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		written += n
	}
	return nil
}

func (rr *ReactorRelay) Close() error {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	select {
	case <-rr.stop:
		return nil
	default:
	}
	close(rr.stop)

	if _, err := syscall.Write(rr.wakeupW, []byte{0}); err != nil {
		logs.Warn(fmt.Sprintf("write wakeup pipe failed. err: %v", err))
	}
	rr.done.Wait()

	err := rr.p.Close()
	if e := rr.listener.Close(); e != nil {
		if err != nil {
			err = errors.Wrap(err, e.Error())
		} else {
			err = e
		}
	}
	// no graceful drain, in-flight connections are simply released
	for _, conn := range rr.conns {
		_ = conn.Close()
	}
	_ = syscall.Close(rr.wakeupR)
	_ = syscall.Close(rr.wakeupW)
	return err
}
