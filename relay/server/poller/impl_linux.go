package poller

import (
	"golang.org/x/sys/unix"
)

type EpollPoller struct {
	epfd *int
}

// New builds the platform poller, epoll on linux.
func New() (Poller, error) {
	return NewEpollPoller()
}

func NewEpollPoller() (*EpollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd: &epfd,
	}, nil
}

func (ep *EpollPoller) Register(changes []Pevent) error {
	for _, change := range changes {
		op := unix.EPOLL_CTL_ADD
		if change.Flag&FlagDelete != 0 {
			op = unix.EPOLL_CTL_DEL
		}
		evt := &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(change.Fd),
		}
		if err := unix.EpollCtl(*ep.epfd, op, change.Fd, evt); err != nil {
			return err
		}
	}
	return nil
}

func (ep *EpollPoller) Wait(events []Pevent) (int, error) {
	eevents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(*ep.epfd, eevents, -1)
	if err != nil {
		return 0, err
	}
	ep.toPevent(eevents, events, n)
	return n, nil
}

func (ep *EpollPoller) toPevent(eevents []unix.EpollEvent, pevents []Pevent, n int) {
	for idx := 0; idx < n; idx++ {
		eevt := eevents[idx]
		pevents[idx].Fd = int(eevt.Fd)
		pevents[idx].Operation = OpRead
		pevents[idx].Flag = 0
	}
}

func (ep *EpollPoller) Close() error {
	var err error
	if ep.epfd != nil {
		err = unix.Close(*ep.epfd)
	}
	return err
}
