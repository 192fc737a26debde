// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"

	applog "visualizer/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at debug level.
type LoggingTransport struct {
	every uint64 // log one payload out of every N
	count uint64
}

// NewLoggingTransport creates a LoggingTransport that logs one payload out of
// every n (n <= 1 logs all of them).
func NewLoggingTransport(n int) *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	if n < 1 {
		n = 1
	}
	return &LoggingTransport{every: uint64(n)}
}

// Send logs the received data. It never fails. Send is expected to be called
// from a single goroutine.
func (lt *LoggingTransport) Send(data any) error {
	lt.count++
	if (lt.count-1)%lt.every != 0 || applog.GetLevel() > applog.LevelDebug {
		return nil
	}
	if s, ok := data.(fmt.Stringer); ok {
		applog.Debugf("LoggingTransport: %s", s)
		return nil
	}
	applog.Debugf("LoggingTransport: (%T) %+v", data, data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
