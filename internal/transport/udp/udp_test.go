// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeBins struct {
	mu   sync.Mutex
	bins []float64
	err  error
}

func (f *fakeBins) BinCount() int { return len(f.bins) }

func (f *fakeBins) LatestBinsInto(dst []float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copy(dst, f.bins)
	return nil
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPacket(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	return buf[:n]
}

func TestAppendPacket(t *testing.T) {
	var buf bytes.Buffer
	bins := []float32{0.5, -1, 2.25}
	packet := appendPacket(&buf, 42, 1_700_000_000_123, bins)

	if len(packet) != HeaderSize+4*len(bins) {
		t.Fatalf("len = %d, want %d", len(packet), HeaderSize+4*len(bins))
	}
	if seq := binary.BigEndian.Uint32(packet[0:4]); seq != 42 {
		t.Errorf("sequence = %d, want 42", seq)
	}
	if ts := int64(binary.BigEndian.Uint64(packet[4:12])); ts != 1_700_000_000_123 {
		t.Errorf("timestamp = %d", ts)
	}
	if n := binary.BigEndian.Uint16(packet[12:14]); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	for i, want := range bins {
		off := HeaderSize + 4*i
		got := math.Float32frombits(binary.BigEndian.Uint32(packet[off : off+4]))
		if got != want {
			t.Errorf("bin %d = %f, want %f", i, got, want)
		}
	}

	// The buffer is reset between packets.
	packet = appendPacket(&buf, 43, 0, bins[:1])
	if len(packet) != HeaderSize+4 {
		t.Errorf("second packet len = %d, want %d", len(packet), HeaderSize+4)
	}
}

func TestSender(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}

	if err := sender.Send([]byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := readPacket(t, server); string(got) != "hello" {
		t.Errorf("received %q, want hello", got)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := sender.Send([]byte("x")); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSenderClosed", err)
	}
}

func TestSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not-an-address"); err == nil {
		t.Errorf("expected error for address without port")
	}
}

func TestNewPublisherValidation(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	defer sender.Close()

	if _, err := NewUDPPublisher(time.Millisecond, nil, &fakeBins{}); err == nil {
		t.Errorf("expected error for nil sender")
	}
	if _, err := NewUDPPublisher(time.Millisecond, sender, nil); err == nil {
		t.Errorf("expected error for nil provider")
	}
	if _, err := NewUDPPublisher(time.Millisecond, sender, &fakeBins{bins: make([]float64, 70000)}); err == nil {
		t.Errorf("expected error for bin count above uint16")
	}

	p, err := NewUDPPublisher(0, sender, &fakeBins{bins: []float64{1}})
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}
	if p.interval != 33*time.Millisecond {
		t.Errorf("interval = %s, want 33ms default", p.interval)
	}
}

func TestPublisher(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	defer sender.Close()

	provider := &fakeBins{bins: []float64{0.1, 0.2, 0.3, 0.4}}
	p, err := NewUDPPublisher(5*time.Millisecond, sender, provider)
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}
	p.Start()
	p.Start() // no-op while running

	first := readPacket(t, server)
	second := readPacket(t, server)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() after Close error = %v", err)
	}

	if len(first) != HeaderSize+4*4 {
		t.Fatalf("packet len = %d, want %d", len(first), HeaderSize+16)
	}
	s1 := binary.BigEndian.Uint32(first[0:4])
	s2 := binary.BigEndian.Uint32(second[0:4])
	if s1 != 1 || s2 != 2 {
		t.Errorf("sequence numbers = %d, %d, want 1, 2", s1, s2)
	}
	got := math.Float32frombits(binary.BigEndian.Uint32(first[HeaderSize+8:]))
	if got != float32(0.3) {
		t.Errorf("bin 2 = %f, want 0.3", got)
	}
}

func TestPublisherSkipsProviderErrors(t *testing.T) {
	server := listen(t)
	sender, err := NewUDPSender(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	defer sender.Close()

	provider := &fakeBins{bins: []float64{1}, err: errors.New("not ready")}
	p, err := NewUDPPublisher(time.Millisecond, sender, provider)
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}

	p.buildAndSendPacket()
	if p.sequenceNum != 0 {
		t.Errorf("sequence advanced to %d on provider error", p.sequenceNum)
	}

	provider.mu.Lock()
	provider.err = nil
	provider.mu.Unlock()
	p.buildAndSendPacket()
	if got := readPacket(t, server); binary.BigEndian.Uint32(got[0:4]) != 1 {
		t.Errorf("first delivered packet has sequence %d, want 1", binary.BigEndian.Uint32(got[0:4]))
	}
}
