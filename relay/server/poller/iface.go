package poller

// Pevent is the implementation-neutral event record. Each poller maps it
// onto its native change/event representation.
type Pevent struct {
	Fd        int
	Operation int64
	Flag      int64
}

// Operations.
const (
	OpRead int64 = iota + 1
)

// Flags driving Register.
const (
	FlagAdd int64 = 1 << iota
	FlagDelete
)

type Poller interface {
	Register(changes []Pevent) error
	Wait(events []Pevent) (int, error)
	Close() error
}
