// SPDX-License-Identifier: MIT
//go:build windows

package capture

import (
	"sync"
	"sync/atomic"
	"unsafe"

	applog "visualizer/internal/log"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var iidIMMNotificationClient = ole.NewGUID("{7991EEC9-7E89-4D85-8390-6C703CEC60C0}")

// notificationVtbl mirrors the IMMNotificationClient vtable.
type notificationVtbl struct {
	QueryInterface         uintptr
	AddRef                 uintptr
	Release                uintptr
	OnDeviceStateChanged   uintptr
	OnDeviceAdded          uintptr
	OnDeviceRemoved        uintptr
	OnDefaultDeviceChanged uintptr
	OnPropertyValueChanged uintptr
}

// notificationClient is a Go implemented IMMNotificationClient. The OS holds
// references through AddRef/Release; Go code only sees the closure. The
// enumerator keeps the object reachable while it is registered.
type notificationClient struct {
	vtbl     *notificationVtbl
	refs     atomic.Int32
	onChange func()
}

var (
	notificationVtblOnce sync.Once
	notificationVtable   *notificationVtbl
)

func newNotificationClient(onChange func()) *notificationClient {
	// Callback trampolines are a limited resource, build them once per process.
	notificationVtblOnce.Do(func() {
		notificationVtable = &notificationVtbl{
			QueryInterface:         windows.NewCallback(notifyQueryInterface),
			AddRef:                 windows.NewCallback(notifyAddRef),
			Release:                windows.NewCallback(notifyRelease),
			OnDeviceStateChanged:   windows.NewCallback(notifyIgnore2),
			OnDeviceAdded:          windows.NewCallback(notifyIgnore1),
			OnDeviceRemoved:        windows.NewCallback(notifyIgnore1),
			OnDefaultDeviceChanged: windows.NewCallback(notifyDefaultDeviceChanged),
			OnPropertyValueChanged: windows.NewCallback(notifyIgnore2),
		}
	})

	n := &notificationClient{vtbl: notificationVtable, onChange: onChange}
	n.refs.Store(1)
	return n
}

func (n *notificationClient) pointer() uintptr {
	return uintptr(unsafe.Pointer(n))
}

func notificationFrom(this uintptr) *notificationClient {
	return (*notificationClient)(unsafe.Pointer(this))
}

func notifyQueryInterface(this, iid, out uintptr) uintptr {
	ppv := (*uintptr)(unsafe.Pointer(out))
	id := (*ole.GUID)(unsafe.Pointer(iid))

	if ole.IsEqualGUID(id, ole.IID_IUnknown) || ole.IsEqualGUID(id, iidIMMNotificationClient) {
		*ppv = this
		notificationFrom(this).refs.Add(1)
		return 0
	}
	*ppv = 0
	return hrENoInterface
}

func notifyAddRef(this uintptr) uintptr {
	return uintptr(notificationFrom(this).refs.Add(1))
}

func notifyRelease(this uintptr) uintptr {
	refs := notificationFrom(this).refs.Add(-1)
	if refs < 0 {
		refs = 0
	}
	return uintptr(refs)
}

func notifyIgnore1(this, _ uintptr) uintptr { return 0 }

func notifyIgnore2(this, _, _ uintptr) uintptr { return 0 }

func notifyDefaultDeviceChanged(this, flow, role, _ uintptr) uintptr {
	if uint32(flow) != eRender || uint32(role) != eConsole {
		return 0
	}

	n := notificationFrom(this)
	if n.onChange == nil {
		return 0
	}
	applog.Debugf("Capture: Default render device changed")

	// Never block the notification thread; the handler joins the capture thread.
	go n.onChange()
	return 0
}
