package server

import (
	"net"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/Trinoooo/rawd/relay/config"
	"github.com/Trinoooo/rawd/relay/logs"
	"go.uber.org/zap"
)

// IRelay is a relay engine: it owns the listening socket and forwards
// every chunk read from one client to all other live clients, verbatim.
type IRelay interface {
	Serve() error
	Close() error
	Addr() net.Addr
}

type Builder func(cfg *config.Config) (IRelay, error)

var BuilderMap = map[string]Builder{
	consts.EngineReactor: func(cfg *config.Config) (IRelay, error) {
		return NewReactorRelay(cfg)
	},
	consts.EngineGoroutine: func(cfg *config.Config) (IRelay, error) {
		return NewGoroutineRelay(cfg)
	},
}

func Build(cfg *config.Config) (IRelay, error) {
	builder, exist := BuilderMap[cfg.Engine()]
	if !exist {
		e := errs.NewEngineNotFoundErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldEngine, cfg.Engine()))
		return nil, e
	}
	return builder(cfg)
}
