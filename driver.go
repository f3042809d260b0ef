package canlight

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/can"
)

// canEFFFlag marks an arbitration ID as 29-bit (extended) in the SocketCAN
// wire representation; brutella/can frames carry it folded into Frame.ID.
const canEFFFlag uint32 = 0x80000000

// transport is the Bus Driver Facade's contract: a bounded-deadline send
// primitive and a bounded-timeout receive primitive. The engine and every
// proxy depend on this interface, never on *driver directly, so discovery
// scenarios can be tested against a simulated bus with no real device.
type transport interface {
	send(frame Frame, deadline time.Duration) error
	receive(timeout time.Duration) (frame Frame, ok bool)
	close()
}

// driver is the Bus Driver Facade: it owns the underlying fieldbus device
// exclusively and presents it to the rest of the core as an asynchronous
// sink (send) plus source (receive). No other component may send frames on
// the wrapped device.
type driver struct {
	bus *can.Bus

	mu      sync.Mutex
	inbound chan Frame

	cancel context.CancelFunc
}

// openDriver opens device and starts buffering inbound frames immediately,
// before the caller has issued a single receive, so that nothing arriving
// between open and the first receive call is lost.
func openDriver(device string) (*driver, error) {
	bus, err := can.NewBus(device)
	if err != nil {
		return nil, &ErrBusOpen{Device: device, Cause: err}
	}

	d := &driver{
		bus:     bus,
		inbound: make(chan Frame, 256),
	}

	bus.SubscribeFunc(func(f can.Frame) {
		d.mu.Lock()
		ch := d.inbound
		d.mu.Unlock()
		if ch == nil {
			return
		}
		frame := Frame{
			ID:       f.ID &^ canEFFFlag,
			Extended: f.ID&canEFFFlag != 0,
			DLC:      f.Length,
		}
		copy(frame.Data[:], f.Data[:])
		select {
		case ch <- frame:
		default:
			_lg.Warn("canlight: inbound frame dropped, receiver not keeping up")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			_lg.Errorf("canlight: bus connection ended: %v", err)
		}
		<-ctx.Done()
	}()

	return d, nil
}

// send blocks up to deadline to enqueue frame onto the physical bus.
func (d *driver) send(frame Frame, deadline time.Duration) error {
	id := frame.ID
	if frame.Extended {
		id |= canEFFFlag
	}
	out := can.Frame{
		ID:     id,
		Length: frame.DLC,
		Data:   frame.Data,
	}

	done := make(chan error, 1)
	go func() {
		done <- d.bus.Publish(out)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(deadline):
		return ErrSendTimeout{Deadline: deadline.String()}
	}
}

// receive returns the next inbound frame, or ok=false if timeout elapses
// with no arrival.
func (d *driver) receive(timeout time.Duration) (frame Frame, ok bool) {
	d.mu.Lock()
	ch := d.inbound
	d.mu.Unlock()

	select {
	case f := <-ch:
		return f, true
	case <-time.After(timeout):
		return Frame{}, false
	}
}

// close stops delivering inbound frames and releases the device. It does
// not close the inbound channel: the SubscribeFunc callback (driven from
// brutella/can's own goroutine) reads d.inbound under d.mu and may already
// be past that check, mid-send, by the time this runs: closing the channel
// out from under it would panic. Clearing the field to nil under the same
// lock is enough to stop future deliveries; the channel itself is left for
// the garbage collector.
func (d *driver) close() {
	d.mu.Lock()
	d.inbound = nil
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	_ = d.bus.Disconnect()
}
