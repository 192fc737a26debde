// SPDX-License-Identifier: MIT
//go:build windows

package capture

import (
	"fmt"
	"time"
	"unsafe"

	applog "visualizer/internal/log"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

const wasapiAvailable = true

var (
	clsidMMDeviceEnumerator = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioClient         = ole.NewGUID("{1CB9AD4C-DBFA-4C32-B178-C2F568A703B2}")
	iidIAudioCaptureClient  = ole.NewGUID("{C8ADBD64-E71E-48A0-A4DE-185C395CD317}")
)

const (
	eRender  = 0
	eConsole = 0

	clsctxAll = 0x1 | 0x2 | 0x4 | 0x10

	audclntShareModeShared   = 0
	audclntStreamLoopback    = 0x00020000
	audclntBufferFlagsSilent = 0x2

	waveFormatIEEEFloat  = 0x0003
	waveFormatExtensible = 0xFFFE

	// IUnknown takes slots 0-2.
	enumGetDefaultAudioEndpoint = 4
	enumRegisterNotification    = 6
	enumUnregisterNotification  = 7
	deviceActivate              = 3
	deviceGetID                 = 5
	clientInitialize            = 3
	clientGetMixFormat          = 8
	clientStart                 = 10
	clientStop                  = 11
	clientGetService            = 14
	captureGetBuffer            = 3
	captureReleaseBuffer        = 4
	captureGetNextPacketSize    = 5
)

// waveFormatEx mirrors WAVEFORMATEX.
type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
}

// WASAPI captures the default render endpoint in shared-mode loopback.
type WASAPI struct {
	bufferDuration time.Duration
}

// NewWASAPI creates the Windows loopback backend. bufferDuration sizes the
// shared-mode client buffer.
func NewWASAPI(bufferDuration time.Duration) Backend {
	if bufferDuration <= 0 {
		bufferDuration = 200 * time.Millisecond
	}
	return &WASAPI{bufferDuration: bufferDuration}
}

func (w *WASAPI) Name() string { return "wasapi" }

func (w *WASAPI) AttachThread() (func(), error) {
	return coInitialize()
}

func (w *WASAPI) NewEnumerator() (Enumerator, error) {
	apt, err := enterApartment()
	if err != nil {
		return nil, err
	}

	unk, err := ole.CreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		apt.leave()
		return nil, fmt.Errorf("CoCreateInstance MMDeviceEnumerator: %w", err)
	}

	return &wasapiEnumerator{
		backend: w,
		apt:     apt,
		obj:     uintptr(unsafe.Pointer(unk)),
	}, nil
}

type wasapiEnumerator struct {
	backend *WASAPI
	apt     *apartment
	obj     uintptr
	notify  *notificationClient
}

func (e *wasapiEnumerator) DefaultOutput() (Device, error) {
	var device uintptr
	if err := comCall(e.obj, enumGetDefaultAudioEndpoint,
		eRender, eConsole, uintptr(unsafe.Pointer(&device))); err != nil {
		return nil, fmt.Errorf("GetDefaultAudioEndpoint: %w", err)
	}
	return &wasapiDevice{backend: e.backend, obj: device}, nil
}

func (e *wasapiEnumerator) Subscribe(onDefaultChange func()) error {
	if e.notify != nil {
		return nil
	}
	n := newNotificationClient(onDefaultChange)
	if err := comCall(e.obj, enumRegisterNotification, n.pointer()); err != nil {
		return fmt.Errorf("RegisterEndpointNotificationCallback: %w", err)
	}
	e.notify = n
	return nil
}

func (e *wasapiEnumerator) Close() error {
	var err error
	if e.notify != nil {
		if uerr := comCall(e.obj, enumUnregisterNotification, e.notify.pointer()); uerr != nil {
			err = fmt.Errorf("UnregisterEndpointNotificationCallback: %w", uerr)
		}
		e.notify = nil
	}
	comRelease(e.obj)
	e.obj = 0
	e.apt.leave()
	return err
}

type wasapiDevice struct {
	backend *WASAPI
	obj     uintptr
}

func (d *wasapiDevice) ID() string {
	var id *uint16
	if err := comCall(d.obj, deviceGetID, uintptr(unsafe.Pointer(&id))); err != nil || id == nil {
		return "unknown"
	}
	defer ole.CoTaskMemFree(uintptr(unsafe.Pointer(id)))
	return windows.UTF16PtrToString(id)
}

func (d *wasapiDevice) Activate() (Client, error) {
	var client uintptr
	if err := comCall(d.obj, deviceActivate,
		uintptr(unsafe.Pointer(iidIAudioClient)), clsctxAll, 0,
		uintptr(unsafe.Pointer(&client))); err != nil {
		return nil, fmt.Errorf("Activate IAudioClient: %w", err)
	}
	return &wasapiClient{bufferDuration: d.backend.bufferDuration, obj: client}, nil
}

func (d *wasapiDevice) Release() {
	comRelease(d.obj)
	d.obj = 0
}

type wasapiClient struct {
	bufferDuration time.Duration
	obj            uintptr
	mix            uintptr // WAVEFORMATEX from GetMixFormat, CoTaskMem owned
	format         Format
}

func (c *wasapiClient) MixFormat() (Format, error) {
	if c.mix != 0 {
		return c.format, nil
	}

	var mix uintptr
	if err := comCall(c.obj, clientGetMixFormat, uintptr(unsafe.Pointer(&mix))); err != nil {
		return Format{}, fmt.Errorf("GetMixFormat: %w", err)
	}
	c.mix = mix

	wf := *(*waveFormatEx)(unsafe.Pointer(mix))
	c.format = Format{
		SampleRate: int(wf.SamplesPerSec),
		Channels:   int(wf.Channels),
		Float: wf.FormatTag == waveFormatIEEEFloat ||
			(wf.FormatTag == waveFormatExtensible && wf.BitsPerSample == 32),
	}

	applog.Debugf("Capture: WASAPI mix format tag=0x%04X bits=%d rate=%d channels=%d",
		wf.FormatTag, wf.BitsPerSample, wf.SamplesPerSec, wf.Channels)
	return c.format, nil
}

func (c *wasapiClient) InitializeLoopback(Format) error {
	if c.mix == 0 {
		if _, err := c.MixFormat(); err != nil {
			return err
		}
	}

	// REFERENCE_TIME is in 100ns units.
	duration := int64(c.bufferDuration / 100)
	if err := comCall(c.obj, clientInitialize,
		audclntShareModeShared, audclntStreamLoopback,
		uintptr(duration), 0, c.mix, 0); err != nil {
		return fmt.Errorf("IAudioClient Initialize: %w", err)
	}
	return nil
}

func (c *wasapiClient) CaptureClient() (CaptureClient, error) {
	var capture uintptr
	if err := comCall(c.obj, clientGetService,
		uintptr(unsafe.Pointer(iidIAudioCaptureClient)),
		uintptr(unsafe.Pointer(&capture))); err != nil {
		return nil, fmt.Errorf("GetService IAudioCaptureClient: %w", err)
	}
	return &wasapiCapture{obj: capture, channels: c.format.Channels}, nil
}

func (c *wasapiClient) Start() error {
	if err := comCall(c.obj, clientStart); err != nil {
		return fmt.Errorf("IAudioClient Start: %w", err)
	}
	return nil
}

func (c *wasapiClient) Stop() error {
	if err := comCall(c.obj, clientStop); err != nil {
		return fmt.Errorf("IAudioClient Stop: %w", err)
	}
	return nil
}

func (c *wasapiClient) Release() {
	if c.mix != 0 {
		ole.CoTaskMemFree(c.mix)
		c.mix = 0
	}
	comRelease(c.obj)
	c.obj = 0
}

type wasapiCapture struct {
	obj      uintptr
	channels int
}

func (c *wasapiCapture) NextPacketSize() (int, error) {
	var frames uint32
	if err := comCall(c.obj, captureGetNextPacketSize, uintptr(unsafe.Pointer(&frames))); err != nil {
		return 0, fmt.Errorf("GetNextPacketSize: %w", err)
	}
	return int(frames), nil
}

func (c *wasapiCapture) GetBuffer() (Packet, error) {
	var (
		data   uintptr
		frames uint32
		flags  uint32
	)
	if err := comCall(c.obj, captureGetBuffer,
		uintptr(unsafe.Pointer(&data)),
		uintptr(unsafe.Pointer(&frames)),
		uintptr(unsafe.Pointer(&flags)),
		0, 0); err != nil {
		return Packet{}, fmt.Errorf("GetBuffer: %w", err)
	}

	pkt := Packet{Frames: int(frames), Silent: flags&audclntBufferFlagsSilent != 0}
	if !pkt.Silent && data != 0 && frames > 0 {
		pkt.Data = unsafe.Slice((*float32)(unsafe.Pointer(data)), int(frames)*c.channels)
	}
	return pkt, nil
}

func (c *wasapiCapture) ReleaseBuffer(frames int) error {
	if err := comCall(c.obj, captureReleaseBuffer, uintptr(frames)); err != nil {
		return fmt.Errorf("ReleaseBuffer: %w", err)
	}
	return nil
}

func (c *wasapiCapture) Release() {
	comRelease(c.obj)
	c.obj = 0
}
