package server

import (
	"fmt"

	"github.com/Trinoooo/rawd/relay/logs"
	"github.com/luci/go-render/render"
)

// Frame is a single broadcast unit: up to consts.MaxBufSize bytes read
// from one client in one pass. Data is only valid during the forward call.
type Frame struct {
	SrcFd int
	Data  []byte
}

type ForwardFunc func(frame *Frame) error

type MiddlewareFunc func(forwardFn ForwardFunc) ForwardFunc

func Chain(forwardFn ForwardFunc, mws ...MiddlewareFunc) ForwardFunc {
	wrapped := forwardFn
	for _, mw := range mws {
		wrapped = mw(wrapped)
	}
	return wrapped
}

func LogMw(forwardFn ForwardFunc) ForwardFunc {
	return func(frame *Frame) error {
		logs.Info(fmt.Sprintf("frame: %s", render.Render(frame)))
		err := forwardFn(frame)
		if err != nil {
			logs.Error(fmt.Sprintf("forward failed: %v", err))
		}
		return err
	}
}

func MetricsMw(helper *MetricsHelper) MiddlewareFunc {
	return func(forwardFn ForwardFunc) ForwardFunc {
		return func(frame *Frame) error {
			helper.RelayedBytesCounter.Add(float64(len(frame.Data)))
			helper.RelayedFrameCounter.Inc()
			return forwardFn(frame)
		}
	}
}
