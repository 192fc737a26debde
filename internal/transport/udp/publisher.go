// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/transport"
)

// HeaderSize is the byte length of the packet header preceding the bins.
const HeaderSize = 4 + 8 + 2

// UDPPublisher periodically fetches the latest spectrum bins, packs them into
// a binary packet and sends them with a UDPSender. It runs in a separate
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	bins     transport.BinsProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Reused on every tick.
	binBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. If interval is not positive it
// defaults to 33ms (~30Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, bins transport.BinsProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if bins == nil {
		return nil, fmt.Errorf("UDPPublisher: bins provider cannot be nil")
	}

	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	n := bins.BinCount()
	if n > 0xFFFF {
		return nil, fmt.Errorf("UDPPublisher: %d bins do not fit the packet count field", n)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, n)

	return &UDPPublisher{
		sender:       sender,
		bins:         bins,
		interval:     interval,
		binBuffer:    make([]float64, n),
		f32Buffer:    make([]float32, n),
		packetBuffer: bytes.NewBuffer(make([]byte, 0, HeaderSize+4*n)),
	}, nil
}

// Start begins the periodic publishing. Subsequent calls are no-ops while
// running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop when not running is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Bin Count   |          Bins           |
|      (uint32)     |  (int64, unix nanos)  |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// buildAndSendPacket runs on every tick.
func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.bins.LatestBinsInto(p.binBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error getting bins: %v", err)
		return
	}
	for i, v := range p.binBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	packet := appendPacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), p.f32Buffer)

	if err := p.sender.Send(packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// appendPacket resets buf and encodes one packet into it.
func appendPacket(buf *bytes.Buffer, seq uint32, timestamp int64, bins []float32) []byte {
	buf.Reset()
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], seq)
	binary.BigEndian.PutUint64(header[4:12], uint64(timestamp))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(bins)))
	buf.Write(header[:])
	binary.Write(buf, binary.BigEndian, bins) // bytes.Buffer writes never fail
	return buf.Bytes()
}

// Close stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
