// Package discovery implements the WS-Discovery side of the virtual
// camera: answering multicast Probe requests with unicast ProbeMatches and
// emitting Hello/Bye announcements for the active device.
package discovery

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"

	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/soap"
)

// announceTTL keeps Hello/Bye multicasts on nearby network segments.
const announceTTL = 2

// State describes the responder lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	default:
		return "stopped"
	}
}

// Responder listens on the WS-Discovery multicast group and replies to
// Probe requests that ask for a NetworkVideoTransmitter. One receive
// goroutine runs between Start and Stop; Hello and Bye are independent
// one-shot sends.
type Responder struct {
	reg   *camera.Registry
	log   zerolog.Logger
	group string
	xaddr string

	state atomic.Int32

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

// NewResponder creates a responder. groupAddr is the multicast
// "host:port" to listen on; xaddr is the device service address advertised
// in replies and announcements.
func NewResponder(reg *camera.Registry, log zerolog.Logger, groupAddr, xaddr string) *Responder {
	return &Responder{
		reg:   reg,
		log:   log.With().Str("component", "discovery").Logger(),
		group: groupAddr,
		xaddr: xaddr,
	}
}

// State returns the current lifecycle state.
func (r *Responder) State() State {
	return State(r.state.Load())
}

// Start joins the multicast group and spawns the receive loop. The
// listening socket binds the wildcard address so other discovery traffic on
// the host keeps working.
func (r *Responder) Start() error {
	if !r.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return errors.Errorf("discovery responder already running (%s)", r.State())
	}

	group, err := net.ResolveUDPAddr("udp4", r.group)
	if err != nil {
		r.state.Store(int32(StateStopped))
		return errors.Annotate(err, "resolving multicast group")
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", group.Port))
	if err != nil {
		r.state.Store(int32(StateStopped))
		return errors.Annotate(err, "binding discovery socket")
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
		conn.Close()
		r.state.Store(int32(StateStopped))
		return errors.Annotatef(err, "joining multicast group %s", group.IP)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.state.Store(int32(StateListening))
	r.log.Info().Str("group", r.group).Msg("discovery responder listening")

	r.wg.Add(1)
	go r.listen(conn)
	return nil
}

// Stop closes the socket, which unblocks the receive loop, and waits for it
// to exit.
func (r *Responder) Stop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	r.wg.Wait()
	r.log.Info().Msg("discovery responder stopped")
}

func (r *Responder) listen(conn net.PacketConn) {
	defer r.wg.Done()
	defer r.state.Store(int32(StateStopped))

	buf := make([]byte, 8192)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			r.log.Error().Err(err).Msg("discovery receive failed")
			return
		}
		r.handleDatagram(conn, buf[:n], src)
	}
}

// handleDatagram answers a single discovery datagram. Anything that is not
// a Probe for a NetworkVideoTransmitter is silently ignored.
func (r *Responder) handleDatagram(conn net.PacketConn, data []byte, src net.Addr) {
	if !soap.HasElement(data, "Probe") {
		return
	}
	if !strings.Contains(soap.FirstText(data, "Types"), "NetworkVideoTransmitter") {
		return
	}

	dev, ok := r.reg.Active()
	if !ok {
		r.log.Debug().Msg("probe received but no active device")
		return
	}

	relatesTo := soap.FirstText(data, "MessageID")
	if relatesTo == "" {
		relatesTo = freshMessageID()
	}

	response := probeMatchMessage(dev, relatesTo, r.xaddr)
	if _, err := conn.WriteTo([]byte(response), src); err != nil {
		r.log.Error().Err(err).Stringer("peer", src).Msg("failed to send probe match")
		return
	}
	r.log.Info().Stringer("peer", src).Str("device", dev.Name).Msg("sent probe match")
}

// SendHello multicasts a Hello announcement for the active device. A no-op
// when no device is active.
func (r *Responder) SendHello() error {
	dev, ok := r.reg.Active()
	if !ok {
		r.log.Debug().Msg("hello skipped, no active device")
		return nil
	}
	if err := r.announce(helloMessage(dev, r.xaddr)); err != nil {
		return errors.Annotate(err, "sending hello")
	}
	r.log.Info().Str("device", dev.Name).Msg("sent hello announcement")
	return nil
}

// SendBye multicasts a Bye announcement for the active device. A no-op
// when no device is active.
func (r *Responder) SendBye() error {
	dev, ok := r.reg.Active()
	if !ok {
		r.log.Debug().Msg("bye skipped, no active device")
		return nil
	}
	if err := r.announce(byeMessage(dev)); err != nil {
		return errors.Annotate(err, "sending bye")
	}
	r.log.Info().Str("device", dev.Name).Msg("sent bye announcement")
	return nil
}

// announce sends one multicast datagram from a throwaway socket with a
// short TTL so announcements stay on nearby segments.
func (r *Responder) announce(message string) error {
	group, err := net.ResolveUDPAddr("udp4", r.group)
	if err != nil {
		return errors.Annotate(err, "resolving multicast group")
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return errors.Annotate(err, "opening announce socket")
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(announceTTL); err != nil {
		return errors.Annotate(err, "setting multicast ttl")
	}

	if _, err := conn.WriteTo([]byte(message), group); err != nil {
		return errors.Annotate(err, "writing announcement")
	}
	return nil
}
