// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"

	"visualizer/pkg/utils"
)

func TestMultiSend(t *testing.T) {
	a := &utils.MockTransport{}
	b := &utils.MockTransport{Err: errors.New("b failed")}
	c := &utils.MockTransport{}
	m := Multi{a, b, c}

	err := m.Send("payload")
	if err == nil || err.Error() != "b failed" {
		t.Fatalf("Send() error = %v, want b failed", err)
	}
	for i, mt := range []*utils.MockTransport{a, c} {
		if mt.Count() != 1 || mt.Last() != "payload" {
			t.Errorf("transport %d: Count() = %d, Last() = %v", i, mt.Count(), mt.Last())
		}
	}
}

func TestMultiClose(t *testing.T) {
	a := &utils.MockTransport{}
	b := &utils.MockTransport{}
	if err := (Multi{a, b}).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.Closed() || !b.Closed() {
		t.Errorf("Close() did not close every transport")
	}
}

type stringer struct{}

func (stringer) String() string { return "frame" }

func TestLoggingTransport(t *testing.T) {
	tests := []struct {
		name string
		n    int
		data any
	}{
		{"Every Payload", 1, 42},
		{"Sampled", 10, []float64{1, 2}},
		{"Stringer", 0, stringer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := NewLoggingTransport(tt.n)
			for range 20 {
				if err := lt.Send(tt.data); err != nil {
					t.Fatalf("Send() error = %v", err)
				}
			}
			if lt.count != 20 {
				t.Errorf("count = %d, want 20", lt.count)
			}
			if err := lt.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}
