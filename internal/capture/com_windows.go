// SPDX-License-Identifier: MIT
//go:build windows

package capture

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

const (
	hrSFalse          = 0x00000001
	hrENoInterface    = 0x80004002
	hrRPCEChangedMode = 0x80010106

	hrDeviceInvalidated = 0x88890004 // AUDCLNT_E_DEVICE_INVALIDATED
)

// comCall invokes the COM method at vtable index idx on obj. obj points to a
// pointer to the vtable.
func comCall(obj uintptr, idx int, args ...uintptr) error {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))))

	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)

	hr, _, _ := syscall.SyscallN(fn, all...)
	if int32(hr) < 0 {
		err := fmt.Errorf("vtable[%d]: %w", idx, ole.NewError(hr))
		if uint32(hr) == hrDeviceInvalidated {
			return fmt.Errorf("%w: %w", ErrDeviceInvalidated, err)
		}
		return err
	}
	return nil
}

// comRelease calls IUnknown::Release.
func comRelease(obj uintptr) {
	if obj == 0 {
		return
	}
	(*ole.IUnknown)(unsafe.Pointer(obj)).Release()
}

// coInitialize joins the calling thread to the multithreaded apartment and
// returns the matching uninitialize.
func coInitialize() (func(), error) {
	err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	if err == nil {
		return ole.CoUninitialize, nil
	}

	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		switch uint32(oleErr.Code()) {
		case hrSFalse:
			// Already initialized on this thread; still needs the balancing call.
			return ole.CoUninitialize, nil
		case hrRPCEChangedMode:
			// Thread is in an STA owned by someone else. Usable, not ours to undo.
			return func() {}, nil
		}
	}
	return nil, fmt.Errorf("CoInitializeEx: %w", err)
}

// apartment keeps one locked OS thread inside the MTA so that goroutines on
// other threads can make COM calls as implicit MTA members.
type apartment struct {
	stop chan struct{}
	done chan struct{}
}

func enterApartment() (*apartment, error) {
	a := &apartment{stop: make(chan struct{}), done: make(chan struct{})}
	errc := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(a.done)

		leave, err := coInitialize()
		errc <- err
		if err != nil {
			return
		}
		<-a.stop
		leave()
	}()

	if err := <-errc; err != nil {
		return nil, err
	}
	return a, nil
}

func (a *apartment) leave() {
	close(a.stop)
	<-a.done
}
