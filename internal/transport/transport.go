// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport defines a generic interface for sending processed data or events.
// Implementations must be thread-safe and must not block the caller, since
// Send is invoked from the capture thread.
type Transport interface {
	Send(data any) error
	Close() error
}

// CommandHandler executes lifecycle commands ("start", "stop") received from
// a consumer.
type CommandHandler interface {
	HandleCommand(method string) error
}

// BinsProvider exposes the most recent spectrum bins to pull-based transports.
type BinsProvider interface {
	BinCount() int
	LatestBinsInto(dst []float64) error
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Multi fans one payload out to several transports. It returns the first
// error but always tries every transport.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
