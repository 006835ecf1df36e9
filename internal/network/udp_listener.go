package network

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"vinput/internal/protocol"
)

const (
	// peerTimeout is how long a sender stays known without traffic.
	peerTimeout = 30 * time.Second

	// registerWindow bounds the clock skew accepted on Register timestamps.
	registerWindow = 30 * time.Second
)

// UDPListener is the agent-side UDP socket that receives binary input
// packets and injects them with minimal latency.
//
// With a token set, only senders whose Register packet carried a valid
// RegisterMAC are served; everything else from unknown addresses is dropped.
// Without one, any sender is accepted.
type UDPListener struct {
	addr    string
	inj     Injector
	verbose bool

	conn *net.UDPConn

	mu    sync.Mutex
	token string
	peers map[string]*udpPeer
	// used register proofs, to refuse replays
	proofs map[[protocol.RegisterMACSize]byte]time.Time
}

type udpPeer struct {
	lastSeen time.Time
	dedup    seqDedup
}

// seqDedup tracks recently seen sequence numbers to discard redundant packets.
// Uses a fixed-size ring buffer, O(1) lookup.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() seqDedup {
	return seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	// Evict oldest entry
	old := d.ring[d.pos]
	if old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}

// NewUDPListener creates a listener on addr (e.g. ":18081") injecting
// through inj.
func NewUDPListener(addr string, inj Injector, verbose bool) *UDPListener {
	return &UDPListener{
		addr:    addr,
		inj:     inj,
		verbose: verbose,
		peers:   make(map[string]*udpPeer),
		proofs:  make(map[[protocol.RegisterMACSize]byte]time.Time),
	}
}

// SetToken replaces the token senders must prove. Known senders are
// forgotten and must register again.
func (l *UDPListener) SetToken(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token == l.token {
		return
	}
	l.token = token
	clear(l.peers)
	clear(l.proofs)
}

// Listen binds the socket. Serve must be called afterwards.
func (l *UDPListener) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	// Large read buffer for burst receives
	conn.SetReadBuffer(1 << 20)
	l.conn = conn
	log.Printf("UDP Listener: Listening on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *UDPListener) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// ListenAndServe binds the socket and serves until ctx is done.
func (l *UDPListener) ListenAndServe(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Serve reads packets until ctx is done. It always returns nil after a
// cancellation.
func (l *UDPListener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()
	go l.cleanupLoop(ctx)

	buf := make([]byte, 64)
	for {
		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			if l.verbose {
				log.Printf("UDP Listener: Dropping packet from %s: %v", remote, err)
			}
			continue
		}
		l.handle(pkt, remote)
	}
}

func (l *UDPListener) handle(pkt *protocol.UDPPacket, remote *net.UDPAddr) {
	key := remote.String()

	if pkt.Type == protocol.UDPPacketRegister {
		if !l.register(pkt, key) {
			log.Printf("UDP Listener: Rejected register from %s", key)
			return
		}
		// Reply with Ack so the sender can confirm UDP connectivity
		ack := &protocol.UDPPacket{
			Type:      protocol.UDPPacketAck,
			Seq:       pkt.Seq,
			Timestamp: time.Now().UnixMilli(),
		}
		l.conn.WriteToUDP(protocol.EncodeUDPPacket(ack), remote)
		return
	}

	l.mu.Lock()
	peer, known := l.peers[key]
	if !known && l.token == "" {
		peer = l.addPeerLocked(key)
		known = true
	}
	duplicate := false
	if known {
		peer.lastSeen = time.Now()
		duplicate = pkt.Type != protocol.UDPPacketAck && peer.dedup.isDuplicate(pkt.Seq)
	}
	l.mu.Unlock()

	if !known {
		if l.verbose {
			log.Printf("UDP Listener: Dropping packet from unregistered sender %s", key)
		}
		return
	}
	if duplicate {
		return
	}

	switch pkt.Type {
	case protocol.UDPPacketMoveRelative:
		if _, err := l.inj.MoveRelative(pkt.DeltaX, pkt.DeltaY, false); err != nil {
			log.Printf("UDP Listener: Relative move from %s failed: %v", key, err)
		}

	default:
		if !pkt.IsEvent() {
			return
		}
		ev, err := pkt.Event()
		if err != nil {
			log.Printf("UDP Listener: Bad event from %s: %v", key, err)
			return
		}
		if err := l.inj.Simulate(ev); err != nil {
			log.Printf("UDP Listener: %v: %v", err, errors.Unwrap(err))
		} else if l.verbose {
			log.Printf("UDP Listener: Injected %s (seq %d) from %s", ev, pkt.Seq, key)
		}
	}
}

// register admits the sender at key. With a token, the packet must carry
// a fresh, unused proof of it.
func (l *UDPListener) register(pkt *protocol.UDPPacket, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" {
		skew := time.Since(time.UnixMilli(pkt.Timestamp))
		if skew > registerWindow || skew < -registerWindow {
			return false
		}
		if !protocol.VerifyRegister(pkt, l.token) {
			return false
		}
		if _, used := l.proofs[pkt.MAC]; used {
			return false
		}
		l.proofs[pkt.MAC] = time.Now()
	}

	peer, known := l.peers[key]
	if !known {
		peer = l.addPeerLocked(key)
	}
	peer.lastSeen = time.Now()
	return true
}

func (l *UDPListener) addPeerLocked(key string) *udpPeer {
	peer := &udpPeer{dedup: newSeqDedup()}
	l.peers[key] = peer
	log.Printf("UDP Listener: Sender registered from %s", key)
	return peer
}

// cleanupLoop forgets senders that went quiet.
func (l *UDPListener) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for key, peer := range l.peers {
				if time.Since(peer.lastSeen) > peerTimeout {
					log.Printf("UDP Listener: Removing stale sender %s", key)
					delete(l.peers, key)
				}
			}
			for mac, at := range l.proofs {
				if time.Since(at) > 2*registerWindow {
					delete(l.proofs, mac)
				}
			}
			l.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// PeerCount returns the number of senders seen recently.
func (l *UDPListener) PeerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}
