package poller

import "syscall"

type KqueuePoller struct {
	kq *int
}

// New builds the platform poller, kqueue on darwin.
func New() (Poller, error) {
	return NewKqueuePoller()
}

func NewKqueuePoller() (*KqueuePoller, error) {
	kqFd, err := syscall.Kqueue()
	if err != nil {
		return nil, err
	}

	return &KqueuePoller{
		kq: &kqFd,
	}, nil
}

func (kp *KqueuePoller) Register(changes []Pevent) error {
	kchanges := kp.fromPevent(changes)
	_, err := syscall.Kevent(*kp.kq, kchanges, nil, nil)
	return err
}

func (kp *KqueuePoller) Wait(events []Pevent) (int, error) {
	kevents := make([]syscall.Kevent_t, len(events))
	n, err := syscall.Kevent(*kp.kq, nil, kevents, nil)
	if err != nil {
		return 0, err
	}
	kp.toPevent(kevents, events, n)
	return n, nil
}

func (kp *KqueuePoller) fromPevent(events []Pevent) []syscall.Kevent_t {
	kevents := make([]syscall.Kevent_t, 0, len(events))
	for _, pevt := range events {
		flags := uint16(syscall.EV_ADD | syscall.EV_ENABLE)
		if pevt.Flag&FlagDelete != 0 {
			flags = syscall.EV_DELETE
		}
		kevents = append(kevents, syscall.Kevent_t{
			Ident:  uint64(pevt.Fd),
			Filter: syscall.EVFILT_READ,
			Flags:  flags,
		})
	}
	return kevents
}

func (kp *KqueuePoller) toPevent(kevents []syscall.Kevent_t, pevents []Pevent, n int) {
	for idx := 0; idx < n; idx++ {
		kevt := kevents[idx]
		pevents[idx].Fd = int(kevt.Ident)
		pevents[idx].Operation = OpRead
		pevents[idx].Flag = 0
	}
}

func (kp *KqueuePoller) Close() error {
	var err error
	if kp.kq != nil {
		err = syscall.Close(*kp.kq)
	}
	return err
}
