package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/softdma/softdma/engine/hal"
	"github.com/softdma/softdma/pkg"
)

// openTestHandle opens a direction-correct handle on a fresh engine.
func openTestHandle(t *testing.T, dir Direction, streaming bool) (*Handle, *Engine, *mockSubmitter) {
	t.Helper()
	e, m := newTestEngine(t, dir, streaming)
	node := NewNode(e.Name(), e)

	flags := ReadOnly
	if dir == HostToDevice {
		flags = WriteOnly
	}
	h, err := node.Open(flags)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h, e, m
}

// transferArg serializes req followed by payload into one command
// region, with the request's buffer fields pointing at the payload.
func transferArg(t *testing.T, mode uint32, deviceAddr uint64, payload []byte) []byte {
	t.Helper()
	req := TransferRequest{
		Mode:       mode,
		BufOffset:  TransferRequestSize,
		Length:     uint64(len(payload)),
		DeviceAddr: deviceAddr,
	}
	arg := make([]byte, TransferRequestSize+len(payload))
	if req.MarshalTo(arg) == 0 {
		t.Fatal("MarshalTo() failed")
	}
	copy(arg[TransferRequestSize:], payload)
	return arg
}

func TestIoctlUnknownCommand(t *testing.T) {
	h, _, _ := openTestHandle(t, HostToDevice, false)

	if err := h.Ioctl(0xdeadbeef, nil); err != pkg.ErrUnknownCommand {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrUnknownCommand)
	}
}

func TestIoctlClosed(t *testing.T) {
	h, _, _ := openTestHandle(t, HostToDevice, false)
	h.Close()

	arg := make([]byte, 4)
	if err := h.Ioctl(CmdAlignGet, arg); err != pkg.ErrClosed {
		t.Errorf("Ioctl() after Close error = %v, want %v", err, pkg.ErrClosed)
	}
}

func TestPerfTest(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)

	cfg := hal.PerfConfig{
		Version:      hal.PerfVersion,
		TransferSize: 4096,
		Iterations:   16,
	}
	arg := make([]byte, hal.PerfConfigSize)
	cfg.MarshalTo(arg)

	if err := h.Ioctl(CmdPerfTest, arg); err != nil {
		t.Fatalf("Ioctl(CmdPerfTest) error = %v", err)
	}

	var result hal.PerfConfig
	if !hal.ParsePerfConfig(arg, &result) {
		t.Fatal("ParsePerfConfig() failed on result")
	}
	if result.Stopped != 1 {
		t.Errorf("result Stopped = %d, want 1", result.Stopped)
	}
	if result.ClockCycleCount == 0 {
		t.Error("result ClockCycleCount = 0, want nonzero")
	}
	if m.perfRuns != 1 {
		t.Errorf("performance runs = %d, want 1", m.perfRuns)
	}
	if e.Busy() {
		t.Error("Busy() = true after perf test")
	}
}

func TestPerfTestShortRegion(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)

	arg := make([]byte, hal.PerfConfigSize-1)
	if err := h.Ioctl(CmdPerfTest, arg); err != pkg.ErrShortRequest {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrShortRequest)
	}
	if m.perfRuns != 0 {
		t.Errorf("performance runs = %d, want 0", m.perfRuns)
	}
	if e.Busy() {
		t.Error("Busy() = true after short perf request")
	}
}

func TestPerfTestBusy(t *testing.T) {
	h, e, _ := openTestHandle(t, HostToDevice, false)
	obs := &mockObserver{}
	e.SetObserver(obs)

	cfg := hal.PerfConfig{Version: hal.PerfVersion, TransferSize: 64}
	arg := make([]byte, hal.PerfConfigSize)
	cfg.MarshalTo(arg)

	if !e.busy.TryAcquire() {
		t.Fatal("busy acquire failed")
	}
	if err := h.Ioctl(CmdPerfTest, arg); err != pkg.ErrBusy {
		t.Errorf("Ioctl() while busy error = %v, want %v", err, pkg.ErrBusy)
	}
	e.busy.Release()

	if got := obs.rejectedCount(); got != 1 {
		t.Errorf("rejected count = %d, want 1", got)
	}
}

func TestPerfTestBackendError(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)
	m.perfErr = errors.New("measurement stalled")

	cfg := hal.PerfConfig{Version: hal.PerfVersion, TransferSize: 512}
	arg := make([]byte, hal.PerfConfigSize)
	cfg.MarshalTo(arg)

	err := h.Ioctl(CmdPerfTest, arg)
	if err == nil || err.Error() != "measurement stalled" {
		t.Errorf("Ioctl() error = %v, want measurement stalled", err)
	}

	// Partial results are written back even when the run failed.
	var result hal.PerfConfig
	hal.ParsePerfConfig(arg, &result)
	if result.Stopped != 1 {
		t.Errorf("result Stopped = %d, want 1", result.Stopped)
	}
	if e.Busy() {
		t.Error("Busy() = true after failed perf test")
	}
}

func TestAddrModeSet(t *testing.T) {
	h, e, _ := openTestHandle(t, HostToDevice, false)

	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, 1)
	if err := h.Ioctl(CmdAddrModeSet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAddrModeSet) error = %v", err)
	}
	if !e.NonIncrementing() {
		t.Error("NonIncrementing() = false after set")
	}

	binary.LittleEndian.PutUint32(arg, 0)
	if err := h.Ioctl(CmdAddrModeSet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAddrModeSet) error = %v", err)
	}
	if e.NonIncrementing() {
		t.Error("NonIncrementing() = true after clear")
	}
	if e.Busy() {
		t.Error("Busy() = true after address mode set")
	}
}

func TestAddrModeSetStreaming(t *testing.T) {
	// Streaming engines accept the command; the flag has no effect on
	// their transfers.
	h, e, _ := openTestHandle(t, DeviceToHost, true)

	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, 1)
	if err := h.Ioctl(CmdAddrModeSet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAddrModeSet) error = %v", err)
	}
	if !e.NonIncrementing() {
		t.Error("NonIncrementing() = false after set")
	}
}

func TestAddrModeSetDecodeBeforeBusy(t *testing.T) {
	h, e, _ := openTestHandle(t, HostToDevice, false)

	// A short region fails before the busy flag is consulted.
	if !e.busy.TryAcquire() {
		t.Fatal("busy acquire failed")
	}
	if err := h.Ioctl(CmdAddrModeSet, make([]byte, 2)); err != pkg.ErrShortRequest {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrShortRequest)
	}

	// A well-formed region while busy fails with busy.
	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, 1)
	if err := h.Ioctl(CmdAddrModeSet, arg); err != pkg.ErrBusy {
		t.Errorf("Ioctl() while busy error = %v, want %v", err, pkg.ErrBusy)
	}
	e.busy.Release()

	if e.NonIncrementing() {
		t.Error("NonIncrementing() = true, rejected set must not apply")
	}
}

func TestAddrModeGet(t *testing.T) {
	h, e, _ := openTestHandle(t, HostToDevice, false)
	e.SetNonIncrementing(true)

	arg := make([]byte, 4)
	if err := h.Ioctl(CmdAddrModeGet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAddrModeGet) error = %v", err)
	}
	if got := binary.LittleEndian.Uint32(arg); got != 1 {
		t.Errorf("address mode = %d, want 1", got)
	}

	// Read-only command works while a transfer holds the engine.
	e.busy.TryAcquire()
	defer e.busy.Release()
	e.SetNonIncrementing(false)
	if err := h.Ioctl(CmdAddrModeGet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAddrModeGet) while busy error = %v", err)
	}
	if got := binary.LittleEndian.Uint32(arg); got != 0 {
		t.Errorf("address mode = %d, want 0", got)
	}
}

func TestAddrModeGetShortRegion(t *testing.T) {
	h, _, _ := openTestHandle(t, HostToDevice, false)

	if err := h.Ioctl(CmdAddrModeGet, make([]byte, 3)); err != pkg.ErrShortRequest {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrShortRequest)
	}
}

func TestAlignGet(t *testing.T) {
	m := newMockSubmitter()
	m.alignment = 64
	e, err := New(Config{Direction: DeviceToHost, Submitter: m})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	node := NewNode("align_c2h_0", e)
	h, err := node.Open(ReadOnly)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	arg := make([]byte, 4)
	if err := h.Ioctl(CmdAlignGet, arg); err != nil {
		t.Fatalf("Ioctl(CmdAlignGet) error = %v", err)
	}
	if got := binary.LittleEndian.Uint32(arg); got != 64 {
		t.Errorf("alignment = %d, want 64", got)
	}
}

func TestSubmitTransfer(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)

	payload := []byte("dma payload bytes")
	arg := transferArg(t, uint32(HostToDevice), 0x2000, payload)

	if err := h.Ioctl(CmdSubmitTransfer, arg); err != nil {
		t.Fatalf("Ioctl(CmdSubmitTransfer) error = %v", err)
	}

	dir, addr, buf := m.last()
	if dir != hal.HostToDevice {
		t.Errorf("submitted direction = %v, want %v", dir, hal.HostToDevice)
	}
	if addr != 0x2000 {
		t.Errorf("submitted address = %#x, want 0x2000", addr)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("submitted buffer = %q, want %q", buf, payload)
	}

	// The request's length field holds the result count.
	var req TransferRequest
	ParseTransferRequest(arg, &req)
	if req.Length != uint64(len(payload)) {
		t.Errorf("result length = %d, want %d", req.Length, len(payload))
	}

	if e.Busy() {
		t.Error("Busy() = true after transfer")
	}
	if e.Params().Buf != nil {
		t.Error("staged buffer not cleared after transfer")
	}
}

func TestSubmitTransferShortRegion(t *testing.T) {
	h, _, m := openTestHandle(t, HostToDevice, false)

	if err := h.Ioctl(CmdSubmitTransfer, make([]byte, TransferRequestSize-4)); err != pkg.ErrShortRequest {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrShortRequest)
	}
	if m.submitCount() != 0 {
		t.Errorf("submits = %d, want 0", m.submitCount())
	}
}

func TestSubmitTransferModeMismatch(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)

	arg := transferArg(t, uint32(DeviceToHost), 0, []byte("abc"))

	// The mode check precedes the busy flag: a misdirected request is
	// refused even while a transfer holds the engine.
	if !e.busy.TryAcquire() {
		t.Fatal("busy acquire failed")
	}
	if err := h.Ioctl(CmdSubmitTransfer, arg); err != pkg.ErrUnsupported {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrUnsupported)
	}
	e.busy.Release()

	if err := h.Ioctl(CmdSubmitTransfer, arg); err != pkg.ErrUnsupported {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrUnsupported)
	}
	if m.submitCount() != 0 {
		t.Errorf("submits = %d, want 0", m.submitCount())
	}
}

func TestSubmitTransferUnknownMode(t *testing.T) {
	h, _, _ := openTestHandle(t, HostToDevice, false)

	arg := transferArg(t, 0x7f, 0, []byte("abc"))
	if err := h.Ioctl(CmdSubmitTransfer, arg); err != pkg.ErrUnsupported {
		t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrUnsupported)
	}
}

func TestSubmitTransferBadRegion(t *testing.T) {
	tests := []struct {
		name      string
		bufOffset uint64
		length    uint64
	}{
		{"offset beyond region", 4096, 8},
		{"length beyond region", TransferRequestSize, 4096},
		{"sum overflows", math.MaxUint64, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e, m := openTestHandle(t, HostToDevice, false)

			req := TransferRequest{
				Mode:      uint32(HostToDevice),
				BufOffset: tt.bufOffset,
				Length:    tt.length,
			}
			arg := make([]byte, TransferRequestSize+16)
			req.MarshalTo(arg)

			if err := h.Ioctl(CmdSubmitTransfer, arg); err != pkg.ErrBadRegion {
				t.Errorf("Ioctl() error = %v, want %v", err, pkg.ErrBadRegion)
			}
			if m.submitCount() != 0 {
				t.Errorf("submits = %d, want 0", m.submitCount())
			}
			if e.Busy() {
				t.Error("Busy() = true after rejected region")
			}
			if e.Params().Buf != nil {
				t.Error("staged buffer not cleared after rejected region")
			}
		})
	}
}

func TestSubmitTransferBackendError(t *testing.T) {
	h, e, m := openTestHandle(t, HostToDevice, false)
	m.err = errors.New("engine fault")

	payload := []byte("doomed bytes")
	arg := transferArg(t, uint32(HostToDevice), 0, payload)

	err := h.Ioctl(CmdSubmitTransfer, arg)
	if err == nil || err.Error() != "engine fault" {
		t.Errorf("Ioctl() error = %v, want engine fault", err)
	}

	// Failure writes a zero result before the error propagates.
	var req TransferRequest
	ParseTransferRequest(arg, &req)
	if req.Length != 0 {
		t.Errorf("result length = %d, want 0", req.Length)
	}
	if e.Busy() {
		t.Error("Busy() = true after failed transfer")
	}
}

func TestSubmitTransferStreaming(t *testing.T) {
	h, _, m := openTestHandle(t, HostToDevice, true)

	// Streaming engines ignore the request's device address.
	arg := transferArg(t, uint32(HostToDevice), 0xdead0000, []byte("pkt"))
	if err := h.Ioctl(CmdSubmitTransfer, arg); err != nil {
		t.Fatalf("Ioctl(CmdSubmitTransfer) error = %v", err)
	}

	_, addr, _ := m.last()
	if addr != 0 {
		t.Errorf("submitted address = %#x, want 0", addr)
	}
}

func TestSubmitTransferBusy(t *testing.T) {
	h, e, _ := openTestHandle(t, HostToDevice, false)
	obs := &mockObserver{}
	e.SetObserver(obs)

	arg := transferArg(t, uint32(HostToDevice), 0, []byte("abc"))

	if !e.busy.TryAcquire() {
		t.Fatal("busy acquire failed")
	}
	if err := h.Ioctl(CmdSubmitTransfer, arg); err != pkg.ErrBusy {
		t.Errorf("Ioctl() while busy error = %v, want %v", err, pkg.ErrBusy)
	}
	e.busy.Release()

	if got := obs.rejectedCount(); got != 1 {
		t.Errorf("rejected count = %d, want 1", got)
	}
}

func TestSubmitTransferC2H(t *testing.T) {
	h, _, m := openTestHandle(t, DeviceToHost, false)
	m.data = []byte("read back from device")

	payload := make([]byte, len(m.data))
	arg := transferArg(t, uint32(DeviceToHost), 0x80, payload)

	if err := h.Ioctl(CmdSubmitTransfer, arg); err != nil {
		t.Fatalf("Ioctl(CmdSubmitTransfer) error = %v", err)
	}

	// The data region inside arg received the device bytes.
	got := arg[TransferRequestSize:]
	if !bytes.Equal(got, m.data) {
		t.Errorf("region = %q, want %q", got, m.data)
	}
}
