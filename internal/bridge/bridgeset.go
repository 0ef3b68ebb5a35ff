package bridge

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/n7ekb/axkissbridge/internal/agwserver"
	"github.com/n7ekb/axkissbridge/internal/config"
	"github.com/n7ekb/axkissbridge/internal/kiss"
	"github.com/n7ekb/axkissbridge/internal/logging"
	"github.com/n7ekb/axkissbridge/internal/pcapdump"
	"github.com/n7ekb/axkissbridge/internal/pollbuf"
	"github.com/n7ekb/axkissbridge/internal/serialport"
	"github.com/n7ekb/axkissbridge/internal/tcpclient"
	"github.com/n7ekb/axkissbridge/internal/tcpserver"
)

// Set is the running form of a resolved configuration: every open
// physical device and every constructed Bridge, wired and started.
type Set struct {
	Devices map[string]*Device
	Bridges []*Bridge

	pcap      *pcapdump.Sink
	agwServer *agwserver.Server
	log       *logging.Logger
}

// Build opens every physical device the configuration references and
// constructs, attaches and starts every declared Bridge. On any startup
// failure, every device opened so far is closed before the error is
// returned, per §7's "fatal at startup" policy.
func Build(cfg *config.Resolved, log *logging.Logger) (*Set, error) {
	s := &Set{Devices: make(map[string]*Device), log: log}

	if cfg.PCAPFile != "" {
		p, err := pcapdump.Open(cfg.PCAPFile)
		if err != nil {
			return nil, fmt.Errorf("bridgeset: pcap: %w", err)
		}
		s.pcap = p
	}

	if cfg.AGWServerEnable {
		srv, err := agwserver.Listen(
			net.JoinHostPort(cfg.AGWServerAddr, strconv.Itoa(int(cfg.AGWServerPort))),
			cfg.AGWMaxClients,
			log.With("agw", true),
		)
		if err != nil {
			s.closeAll()
			return nil, fmt.Errorf("bridgeset: agw listen: %w", err)
		}
		s.agwServer = srv
	}

	deviceAllKISS := computeAllKISS(cfg)

	for id, dc := range cfg.Devices {
		params := serialport.Params{
			Baud:     dc.Baud,
			StopBits: dc.StopBits,
			DataBits: dc.DataBits,
			Parity:   convertParity(dc.Parity),
		}
		d, err := Open(id, dc.Device, params, deviceAllKISS[id], log.With("device", id))
		if err != nil {
			s.closeAll()
			return nil, fmt.Errorf("bridgeset: open device %s: %w", id, err)
		}
		s.Devices[id] = d
	}

	for _, bc := range cfg.Bridges {
		b, err := s.buildBridge(bc, cfg, log)
		if err != nil {
			s.closeAll()
			return nil, err
		}
		s.Bridges = append(s.Bridges, b)
	}

	for _, d := range s.Devices {
		go d.Run()
	}
	if s.agwServer != nil {
		go s.agwServer.Serve()
	}
	for _, b := range s.Bridges {
		b.start()
	}

	return s, nil
}

func computeAllKISS(cfg *config.Resolved) map[string]bool {
	result := make(map[string]bool, len(cfg.Devices))
	for id := range cfg.Devices {
		result[id] = true
	}
	for _, bc := range cfg.Bridges {
		if !bc.RawCopy {
			continue
		}
		for _, ep := range []config.Endpoint{bc.A, bc.B} {
			if ep.Kind == config.EndpointSerial {
				if onlyRawCopyUsesDevice(cfg, ep.DeviceID) {
					result[ep.DeviceID] = false
				}
			}
		}
	}
	return result
}

// convertParity maps the config package's parity enum onto serialport's.
// The two are deliberately kept separate types (config mirrors the
// reference loader's None/Odd/Even ordering; serialport mirrors the
// teacher's None/Even/Odd ordering), so a bare conversion would swap
// Odd and Even.
func convertParity(p config.Parity) serialport.Parity {
	switch p {
	case config.ParityOdd:
		return serialport.ParityOdd
	case config.ParityEven:
		return serialport.ParityEven
	default:
		return serialport.ParityNone
	}
}

func onlyRawCopyUsesDevice(cfg *config.Resolved, deviceID string) bool {
	for _, bc := range cfg.Bridges {
		for _, ep := range []config.Endpoint{bc.A, bc.B} {
			if ep.Kind == config.EndpointSerial && ep.DeviceID == deviceID && !bc.RawCopy {
				return false
			}
		}
	}
	return true
}

func (s *Set) buildBridge(bc config.Bridge, cfg *config.Resolved, log *logging.Logger) (*Bridge, error) {
	serialEP, otherEP, err := splitEndpoints(bc)
	if err != nil {
		return nil, fmt.Errorf("bridgeset: cross_connect%s: %w", bc.ID, err)
	}

	device, ok := s.Devices[serialEP.DeviceID]
	if !ok {
		return nil, fmt.Errorf("bridgeset: cross_connect%s: unknown device %s", bc.ID, serialEP.DeviceID)
	}

	b := &Bridge{
		ID:        bc.ID,
		Channel:   serialEP.Channel,
		KissChan:  bc.KissChan,
		PhilFlag:  bc.PhilFlag,
		Dump:      bc.Dump,
		ParseKISS: bc.ParseKISS,
		DumpAX25:  bc.DumpAX25,
		RawCopy:   bc.RawCopy,
		KissCopy:  bc.KissCopy,
		AGWEnable: bc.AGWEnable,
		Log:       log.With("bridge", bc.ID),
	}
	if bc.Dump && s.pcap != nil {
		b.PCAP = s.pcap
	}
	if bc.XKISSPolling {
		b.PollBuf = pollbuf.New(pollbuf.DefaultMaxFrames, bc.XKISSRxBufferSize)
		b.PollInterval = time.Duration(bc.XKISSPollTimerMS) * time.Millisecond
		if b.PollInterval <= 0 {
			b.PollInterval = 100 * time.Millisecond
		}
	}

	device.Attach(b)

	switch otherEP.Kind {
	case config.EndpointSerial:
		peer, ok := s.Devices[otherEP.DeviceID]
		if !ok {
			return nil, fmt.Errorf("bridgeset: cross_connect%s: unknown peer device %s", bc.ID, otherEP.DeviceID)
		}
		b.PeerDevice = peer
		b.PeerChannel = otherEP.Channel
		// Registered on the peer without Attach, so b.device keeps
		// naming the primary device.
		peer.bridges = append(peer.bridges, b)
	case config.EndpointTCP:
		if err := s.attachTCP(b, bc, otherEP, cfg, log); err != nil {
			return nil, err
		}
	}

	if bc.AGWEnable {
		if s.agwServer == nil {
			return nil, fmt.Errorf("bridgeset: cross_connect%s: agw_enable set but agw_server_enable is false", bc.ID)
		}
		b.AGWPort = uint32(bc.AGWPort)
		b.AGWServer = s.agwServer
		s.agwServer.Register(b.AGWPort, b.handleAGWTransmit)
	}

	return b, nil
}

// attachTCP decides, from how the Bridge's endpoint was declared,
// whether this Bridge is a TCP server or a TCP client. ep is the Bridge's
// TCP endpoint, whichever side (A or B) of the cross-connect declared it;
// whether it listens or dials is an implementation choice this codebase
// makes explicit: addresses of the form "0.0.0.0" or "" bind a listener,
// anything else dials out.
func (s *Set) attachTCP(b *Bridge, bc config.Bridge, ep config.Endpoint, cfg *config.Resolved, log *logging.Logger) error {
	addr := net.JoinHostPort(ep.Address, strconv.Itoa(int(ep.Port)))

	if ep.Address == "0.0.0.0" || ep.Address == "" {
		srv, err := tcpserver.Listen(addr, cfg.MaxTCPClients, func(slot int, frame []byte) {
			if bc.RawCopy {
				b.handleRawFromNetwork(slot, frame)
			} else {
				b.handleFrameFromNetwork(slot, frame)
			}
		}, log.With("bridge", bc.ID))
		if err != nil {
			return fmt.Errorf("bridgeset: cross_connect%s: listen %s: %w", bc.ID, addr, err)
		}
		srv.Raw = bc.RawCopy
		b.TCPServer = srv
		return nil
	}

	cl := tcpclient.New(addr, func(slot int, frame []byte) {
		if bc.RawCopy {
			b.handleRawFromNetwork(slot, frame)
		} else {
			b.handleFrameFromNetwork(slot, frame)
		}
	}, log.With("bridge", bc.ID))
	cl.Raw = bc.RawCopy
	b.TCPClient = cl
	return nil
}

func splitEndpoints(bc config.Bridge) (serialEP, otherEP config.Endpoint, err error) {
	switch {
	case bc.A.Kind == config.EndpointSerial:
		return bc.A, bc.B, nil
	case bc.B.Kind == config.EndpointSerial:
		return bc.B, bc.A, nil
	default:
		return config.Endpoint{}, config.Endpoint{}, fmt.Errorf("no serial endpoint declared")
	}
}

func (b *Bridge) start() {
	switch {
	case b.TCPServer != nil:
		go b.TCPServer.Serve()
	case b.TCPClient != nil:
		go b.TCPClient.Run()
	}
	if b.PollBuf != nil {
		go b.pollLoop(b.PollInterval)
	}
}

// pollLoop implements the documented subset of XKISS polling: periodic
// flush if the buffer has content, otherwise an empty keep-alive frame.
// The peer-initiated poll command is not implemented (§9).
func (b *Bridge) pollLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if b.terminated.Load() {
			return
		}
		frames := b.PollBuf.DrainAll()
		if len(frames) == 0 {
			keepalive := []byte{kiss.FEND, 0x00, kiss.FEND}
			b.deliverPolled(keepalive)
			continue
		}
		for _, f := range frames {
			b.deliverPolled(f)
		}
	}
}

func (b *Bridge) deliverPolled(frame []byte) {
	switch {
	case b.TCPServer != nil:
		b.TCPServer.Slots.Broadcast(frame, -1)
	case b.TCPClient != nil:
		b.TCPClient.Slots.Broadcast(frame, -1)
	}
}

func (s *Set) closeAll() {
	for _, d := range s.Devices {
		d.Close()
	}
	if s.pcap != nil {
		s.pcap.Close()
	}
}

// Shutdown closes every device and network listener. It does not drain
// in-flight I/O; per §5, cancellation simply abandons it.
func (s *Set) Shutdown() {
	for _, b := range s.Bridges {
		if b.TCPServer != nil {
			b.TCPServer.Close()
		}
		if b.TCPClient != nil {
			b.TCPClient.Stop()
		}
	}
	if s.agwServer != nil {
		s.agwServer.Close()
	}
	s.closeAll()
}
