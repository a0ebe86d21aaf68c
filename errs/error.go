package errs

import (
	"errors"
	"fmt"
)

type RelayErr struct {
	msg  string
	code int64
	err  error
}

// Error output format:
// [code] error class description ( => wrapped cause, when present )
func (re *RelayErr) Error() string {
	details := fmt.Sprintf("[%d] %s", re.code, re.msg)
	if re.err != nil {
		details += fmt.Sprintf(" => %s", re.err)
	}

	return details
}

func (re *RelayErr) Code() int64 {
	return re.code
}

func (re *RelayErr) Unwrap() error {
	return re.err
}

func (re *RelayErr) WithErr(err error) *RelayErr {
	re.err = err
	return re
}

func GetCode(err error) int64 {
	var re *RelayErr
	if errors.As(err, &re) {
		return re.code
	}
	return UnknownErrCode
}

const (
	UnknownErrCode        = 0
	InvalidParamErrCode   = 100001
	ConfigLoadErrCode     = 100002
	SetupErrCode          = 100003
	AcceptErrCode         = 100004
	ReadSocketErrCode     = 100005
	WriteSocketErrCode    = 100006
	PollerCreateErrCode   = 100007
	PollerRegisterErrCode = 100008
	PollerWaitErrCode     = 100009
	EngineNotFoundErrCode = 100010
	ConnLimitErrCode      = 100011
)

func NewUnknownErr() *RelayErr {
	return &RelayErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidParamErr() *RelayErr {
	return &RelayErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewConfigLoadErr() *RelayErr {
	return &RelayErr{msg: "load config failed", code: ConfigLoadErrCode}
}

func NewSetupErr() *RelayErr {
	return &RelayErr{msg: "listener setup failed", code: SetupErrCode}
}

func NewAcceptErr() *RelayErr {
	return &RelayErr{msg: "accept connection failed", code: AcceptErrCode}
}

func NewReadSocketErr() *RelayErr {
	return &RelayErr{msg: "read socket failed", code: ReadSocketErrCode}
}

func NewWriteSocketErr() *RelayErr {
	return &RelayErr{msg: "write socket failed", code: WriteSocketErrCode}
}

func NewPollerCreateErr() *RelayErr {
	return &RelayErr{msg: "create poller failed", code: PollerCreateErrCode}
}

func NewPollerRegisterErr() *RelayErr {
	return &RelayErr{msg: "register poller event failed", code: PollerRegisterErrCode}
}

func NewPollerWaitErr() *RelayErr {
	return &RelayErr{msg: "wait poller event failed", code: PollerWaitErrCode}
}

func NewEngineNotFoundErr() *RelayErr {
	return &RelayErr{msg: "engine not found", code: EngineNotFoundErrCode}
}

func NewConnLimitErr() *RelayErr {
	return &RelayErr{msg: "connection limit reached", code: ConnLimitErrCode}
}
