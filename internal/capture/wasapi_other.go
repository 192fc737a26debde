// SPDX-License-Identifier: MIT
//go:build !windows

package capture

import "time"

const wasapiAvailable = false

// WASAPI is only available on Windows. Everywhere else it fails to enumerate.
type WASAPI struct{}

// NewWASAPI returns a backend that reports ErrUnsupportedBackend.
func NewWASAPI(time.Duration) Backend { return WASAPI{} }

func (WASAPI) Name() string { return "wasapi" }

func (WASAPI) AttachThread() (func(), error) { return nil, ErrUnsupportedBackend }

func (WASAPI) NewEnumerator() (Enumerator, error) { return nil, ErrUnsupportedBackend }
