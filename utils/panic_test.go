package utils

import (
	"testing"
)

func TestHandlePanic(t *testing.T) {
	ran := false
	func() {
		defer HandlePanic(func() {
			ran = true
		})

		panic("boom")
	}()

	if !ran {
		t.Error("cleanup fn not executed after recover")
	}
}
