package network

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"vinput/internal/input"
	"vinput/internal/protocol"
)

// UDPSender sends binary input packets to one agent. Key and button
// packets are repeated because UDP has no delivery guarantee; the agent
// drops the copies by sequence number.
//
// The sender registers again before sending when its last registration
// is older than refreshInterval, so the agent never times it out.
type UDPSender struct {
	conn  *net.UDPConn
	token string
	seq   atomic.Uint32

	mu           sync.Mutex
	lastRegister time.Time
}

// refreshInterval is how often a sending UDPSender registers again.
const refreshInterval = peerTimeout / 3

// DialUDP connects a sender to the agent at addr ("host:port"). token is
// the agent's token, or empty when it has none.
func DialUDP(addr, token string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	// 1 MB write buffer for burst writes
	conn.SetWriteBuffer(1 << 20)
	return &UDPSender{conn: conn, token: token}, nil
}

func (s *UDPSender) registerPacket() *protocol.UDPPacket {
	pkt := &protocol.UDPPacket{
		Type:      protocol.UDPPacketRegister,
		Seq:       s.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
	}
	if s.token != "" {
		pkt.MAC = protocol.RegisterMAC(s.token, pkt.Seq, pkt.Timestamp)
	}
	return pkt
}

// refresh registers again when the last registration is getting old.
func (s *UDPSender) refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastRegister) < refreshInterval {
		return nil
	}
	if _, err := s.conn.Write(protocol.EncodeUDPPacket(s.registerPacket())); err != nil {
		return err
	}
	s.lastRegister = time.Now()
	return nil
}

// Probe tests whether the agent answers. It sends register packets and
// waits for an Ack, trying up to 3 times with a 500ms timeout each. An
// agent rejecting the token stays silent.
func (s *UDPSender) Probe() bool {
	buf := make([]byte, 64)
	defer s.conn.SetReadDeadline(time.Time{})
	for attempt := 0; attempt < 3; attempt++ {
		s.conn.Write(protocol.EncodeUDPPacket(s.registerPacket()))

		s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := s.conn.Read(buf)
		if err != nil {
			continue // timeout or error, retry
		}
		resp, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}
		if resp.Type == protocol.UDPPacketAck {
			log.Printf("UDP Sender: Agent replied with Ack (attempt %d), UDP path is open", attempt+1)
			s.mu.Lock()
			s.lastRegister = time.Now()
			s.mu.Unlock()
			return true
		}
	}
	log.Printf("UDP Sender: No Ack received after 3 attempts, UDP path blocked")
	return false
}

// redundancy returns how many copies of a packet type are sent.
func redundancy(typ uint8) int {
	switch typ {
	case protocol.UDPPacketKeyEvent, protocol.UDPPacketButton:
		return 3
	case protocol.UDPPacketWheel:
		return 2
	default:
		return 1
	}
}

// Send encodes ev and sends it to the agent.
func (s *UDPSender) Send(ev input.Event) error {
	pkt, err := protocol.PacketFromEvent(ev, s.seq.Add(1), time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return s.write(pkt)
}

// MoveRelative asks the agent to move the pointer by (dx, dy).
func (s *UDPSender) MoveRelative(dx, dy int32) error {
	return s.write(&protocol.UDPPacket{
		Type:      protocol.UDPPacketMoveRelative,
		Seq:       s.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
		DeltaX:    dx,
		DeltaY:    dy,
	})
}

func (s *UDPSender) write(pkt *protocol.UDPPacket) error {
	if err := s.refresh(); err != nil {
		return err
	}
	data := protocol.EncodeUDPPacket(pkt)
	for i := 0; i < redundancy(pkt.Type); i++ {
		if _, err := s.conn.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the sender.
func (s *UDPSender) Close() error {
	return s.conn.Close()
}
