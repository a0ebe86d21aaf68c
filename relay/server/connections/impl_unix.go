//go:build unix

package connections

import (
	"net"
	"syscall"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
)

type Connection struct {
	fd         int
	localAddr  syscall.Sockaddr
	remoteAddr syscall.Sockaddr
}

func (c *Connection) Read(buf []byte) (int, error) {
	return syscall.Read(c.fd, buf)
}

func (c *Connection) Write(buf []byte) (int, error) {
	return syscall.Write(c.fd, buf)
}

func (c *Connection) Close() error {
	return syscall.Close(c.fd)
}

func (c *Connection) RemoteAddr() net.Addr {
	return sockaddrToNetAddr(c.remoteAddr)
}

func (c *Connection) LocalAddr() net.Addr {
	return sockaddrToNetAddr(c.localAddr)
}

func (c *Connection) RawFd() int {
	return c.fd
}

type Listener struct {
	conn     *Connection
	nonblock bool
}

func (l *Listener) Accept() (IConnection, error) {
	socket, sa, err := syscall.Accept(l.conn.fd)
	if err != nil {
		return nil, err
	}

	if l.nonblock {
		if err = syscall.SetNonblock(socket, true); err != nil {
			_ = syscall.Close(socket)
			return nil, err
		}
	}

	return &Connection{
		fd:         socket,
		localAddr:  l.conn.localAddr,
		remoteAddr: sa,
	}, nil
}

func (l *Listener) Addr() net.Addr {
	sa, err := syscall.Getsockname(l.conn.fd)
	if err != nil {
		return sockaddrToNetAddr(l.conn.localAddr)
	}
	return sockaddrToNetAddr(sa)
}

func (l *Listener) RawFd() int {
	return l.conn.fd
}

func (l *Listener) Close() error {
	return syscall.Close(l.conn.fd)
}

// Listen binds a listening socket for host:port. An empty host walks both
// address families, wildcard v6 first then wildcard v4, and keeps the
// first candidate that binds. When nonblock is set, accepted sockets are
// switched to nonblocking mode.
func Listen(host string, port int, nonblock bool) (IListener, error) {
	ips, err := candidateIPs(host)
	if err != nil {
		return nil, errs.NewSetupErr().WithErr(err)
	}

	var (
		fd      = -1
		laddr   syscall.Sockaddr
		lastErr error
	)
	for _, ip := range ips {
		family := syscall.AF_INET
		if ip.To4() == nil {
			family = syscall.AF_INET6
		}

		socket, err := syscall.Socket(family, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
		if err != nil {
			lastErr = err
			continue
		}

		if err = syscall.SetsockoptInt(socket, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
			_ = syscall.Close(socket)
			lastErr = err
			continue
		}

		sa := ipToSockaddr(ip, port)
		if err = syscall.Bind(socket, sa); err != nil {
			_ = syscall.Close(socket)
			lastErr = err
			continue
		}

		fd = socket
		laddr = sa
		break
	}

	if fd == -1 {
		return nil, errs.NewSetupErr().WithErr(lastErr)
	}

	if err = syscall.Listen(fd, consts.ListenBacklog); err != nil {
		_ = syscall.Close(fd)
		return nil, errs.NewSetupErr().WithErr(err)
	}

	return &Listener{
		conn: &Connection{
			fd:        fd,
			localAddr: laddr,
		},
		nonblock: nonblock,
	}, nil
}

func candidateIPs(host string) ([]net.IP, error) {
	if host == "" {
		return []net.IP{net.IPv6zero, net.IPv4zero}, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	return net.LookupIP(host)
}

func ipToSockaddr(ip net.IP, port int) syscall.Sockaddr {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &syscall.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa
	}
	sa := &syscall.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa
}

func sockaddrToNetAddr(sa syscall.Sockaddr) net.Addr {
	switch addr := sa.(type) {
	case *syscall.SockaddrInet4:
		return &net.TCPAddr{
			IP:   net.IPv4(addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3]),
			Port: addr.Port,
		}
	case *syscall.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, addr.Addr[:])
		return &net.TCPAddr{
			IP:   ip,
			Port: addr.Port,
		}
	default:
		return nil
	}
}
