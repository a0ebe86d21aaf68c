package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	base := func(frame *Frame) error {
		trace = append(trace, "base")
		return nil
	}
	first := func(forwardFn ForwardFunc) ForwardFunc {
		return func(frame *Frame) error {
			trace = append(trace, "first")
			return forwardFn(frame)
		}
	}
	second := func(forwardFn ForwardFunc) ForwardFunc {
		return func(frame *Frame) error {
			trace = append(trace, "second")
			return forwardFn(frame)
		}
	}

	err := Chain(base, first, second)(&Frame{})
	require.Nil(t, err)
	// the last middleware handed to Chain is the outermost wrapper
	assert.Equal(t, []string{"second", "first", "base"}, trace)
}

func TestMetricsMwCounts(t *testing.T) {
	helper := NewMetricsHelper("")
	forward := Chain(func(frame *Frame) error { return nil }, MetricsMw(helper))

	require.Nil(t, forward(&Frame{SrcFd: 1, Data: []byte("hello")}))
	require.Nil(t, forward(&Frame{SrcFd: 1, Data: []byte("hi")}))
}
