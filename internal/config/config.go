package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrTCPToTCP is returned when a cross_connectNNNN declares TCP on both
// sides; TCP-to-TCP bridges are rejected per the external-interfaces
// grammar.
var ErrTCPToTCP = errors.New("config: tcp-to-tcp cross-connect is not allowed")

// Load reads and parses the config file at path into a Resolved
// configuration.
func Load(path string) (*Resolved, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	kv := parseKV(string(raw))
	return resolve(kv)
}

func parseKV(contents string) map[string]string {
	kv := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		kv[key] = value
	}
	return kv
}

func resolve(kv map[string]string) (*Resolved, error) {
	devices, err := resolveDevices(kv)
	if err != nil {
		return nil, err
	}

	bridges, err := resolveBridges(kv, devices)
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		Devices:       devices,
		Bridges:       bridges,
		MaxTCPClients: intOr(kv, "max_tcp_clients", 3),

		AGWServerEnable: boolOr(kv, "agw_server_enable", false),
		AGWServerAddr:   stringOr(kv, "agw_server_address", "0.0.0.0"),
		AGWServerPort:   uint16(intOr(kv, "agw_server_port", 8010)),
		AGWMaxClients:   intOr(kv, "agw_max_clients", 3),

		LogLevel:     intOr(kv, "log_level", 5),
		Logfile:      kv["logfile"],
		LogToConsole: boolOr(kv, "log_to_console", true),
		PCAPFile:     kv["pcap_file"],
		PIDFile:      kv["pidfile"],
		QuietStartup: boolOr(kv, "quiet_startup", false),
	}
	return r, nil
}

func resolveDevices(kv map[string]string) (map[string]PhysicalDevice, error) {
	ids := deviceIDs(kv)
	devices := make(map[string]PhysicalDevice, len(ids))
	for _, id := range ids {
		device, ok := kv["serial_port"+id]
		if !ok {
			return nil, fmt.Errorf("config: missing device for serial port %s", id)
		}
		devices[id] = PhysicalDevice{
			ID:           id,
			Device:       device,
			Baud:         intOr(kv, "serial_port"+id+"_baud", 9600),
			FlowControl:  parseFlowControl(kv["serial_port"+id+"_flow_control"]),
			StopBits:     parseStopBits(kv["serial_port"+id+"_stop_bits"]),
			Parity:       parseParity(kv["serial_port"+id+"_parity"]),
			DataBits:     8,
			ExtendedKISS: boolOr(kv, "serial_port"+id+"_extended_kiss", false),
		}
	}
	return devices, nil
}

func deviceIDs(kv map[string]string) []string {
	seen := make(map[string]bool)
	var ids []string
	for key := range kv {
		if strings.HasPrefix(key, "serial_port") && len(key) > len("serial_port") {
			rest := key[len("serial_port"):]
			id, _, _ := strings.Cut(rest, "_")
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func resolveBridges(kv map[string]string, devices map[string]PhysicalDevice) ([]Bridge, error) {
	ids := bridgeIDs(kv)

	if len(ids) == 0 {
		if len(devices) == 0 {
			return nil, nil
		}
		var firstID string
		for id := range devices {
			if firstID == "" || id < firstID {
				firstID = id
			}
		}
		return []Bridge{{
			ID: "0000",
			A:  Endpoint{Kind: EndpointSerial, DeviceID: firstID, Channel: 0},
			B:  Endpoint{Kind: EndpointTCP, Address: "0.0.0.0", Port: 8001},
		}}, nil
	}

	bridges := make([]Bridge, 0, len(ids))
	for _, id := range ids {
		value, ok := kv["cross_connect"+id]
		if !ok {
			return nil, fmt.Errorf("config: missing cross_connect%s", id)
		}
		parts := strings.SplitN(value, "<->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("config: invalid cross_connect%s format: %s", id, value)
		}
		a, err := parseEndpoint(strings.TrimSpace(parts[0]), devices)
		if err != nil {
			return nil, err
		}
		b, err := parseEndpoint(strings.TrimSpace(parts[1]), devices)
		if err != nil {
			return nil, err
		}
		if a.Kind == EndpointTCP && b.Kind == EndpointTCP {
			return nil, fmt.Errorf("config: cross_connect%s: %w", id, ErrTCPToTCP)
		}

		prefix := "cross_connect" + id
		kissChan := intOr(kv, prefix+"_kiss_chan", -1)
		if kissChan < -1 || kissChan > 15 {
			return nil, fmt.Errorf("config: cross_connect%s: invalid kiss_chan %d", id, kissChan)
		}
		bridges = append(bridges, Bridge{
			ID:        id,
			A:         a,
			B:         b,
			PhilFlag:  boolOr(kv, prefix+"_phil_flag", false),
			Dump:      boolOr(kv, prefix+"_dump", false),
			ParseKISS: boolOr(kv, prefix+"_parse_kiss", false),
			DumpAX25:  boolOr(kv, prefix+"_dump_ax25", false),
			RawCopy:   boolOr(kv, prefix+"_raw_copy", false),
			KissCopy:  boolOr(kv, prefix+"_kiss_copy", false),
			KissChan:  kissChan,

			XKISSMode:         boolOr(kv, prefix+"_xkiss_mode", false),
			XKISSPort:         intOr(kv, prefix+"_xkiss_port", 0),
			XKISSChecksum:     boolOr(kv, prefix+"_xkiss_checksum", false),
			XKISSPolling:      boolOr(kv, prefix+"_xkiss_polling", false),
			XKISSPollTimerMS:  intOr(kv, prefix+"_xkiss_poll_timer_ms", 100),
			XKISSRxBufferSize: intOr(kv, prefix+"_xkiss_rx_buffer_size", 4096),

			AGWEnable: boolOr(kv, prefix+"_agw_enable", false),
			AGWPort:   intOr(kv, prefix+"_agw_port", 0),
		})
	}
	return bridges, nil
}

func bridgeIDs(kv map[string]string) []string {
	const prefix = "cross_connect"
	seen := make(map[string]bool)
	var ids []string
	for key := range kv {
		if strings.HasPrefix(key, prefix) && len(key) >= len(prefix)+4 {
			id := key[len(prefix) : len(prefix)+4]
			if key != prefix+id {
				continue // this is a _flag suffix key, not the bare declaration
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func parseEndpoint(s string, devices map[string]PhysicalDevice) (Endpoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 {
		return Endpoint{}, fmt.Errorf("config: invalid endpoint: %s", s)
	}
	switch parts[0] {
	case "tcp":
		if len(parts) != 3 {
			return Endpoint{}, fmt.Errorf("config: invalid tcp endpoint: %s", s)
		}
		port, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return Endpoint{}, fmt.Errorf("config: invalid tcp port in %s: %w", s, err)
		}
		return Endpoint{Kind: EndpointTCP, Address: parts[1], Port: uint16(port)}, nil
	case "serial":
		if len(parts) != 3 {
			return Endpoint{}, fmt.Errorf("config: invalid serial endpoint: %s", s)
		}
		channel, err := strconv.Atoi(parts[2])
		if err != nil || channel < 0 || channel > 15 {
			return Endpoint{}, fmt.Errorf("config: invalid kiss channel in %s", s)
		}
		if _, ok := devices[parts[1]]; !ok {
			return Endpoint{}, fmt.Errorf("config: unknown serial port id %q in %s", parts[1], s)
		}
		return Endpoint{Kind: EndpointSerial, DeviceID: parts[1], Channel: channel}, nil
	default:
		return Endpoint{}, fmt.Errorf("config: invalid endpoint type %q in %s", parts[0], s)
	}
}

func parseFlowControl(s string) FlowControl {
	switch strings.ToLower(s) {
	case "software", "xon", "xonxoff", "xon-xoff":
		return FlowSoftware
	case "hardware", "rtscts", "rts-cts", "rts/cts":
		return FlowHardware
	case "dtrdsr", "dtr-dsr", "dtr/dsr":
		return FlowDtrDsr
	default:
		return FlowNone
	}
}

func parseStopBits(s string) int {
	switch s {
	case "2", "two":
		return 2
	default:
		return 1
	}
}

func parseParity(s string) Parity {
	switch strings.ToLower(s) {
	case "odd", "o":
		return ParityOdd
	case "even", "e":
		return ParityEven
	default:
		return ParityNone
	}
}

func intOr(kv map[string]string, key string, def int) int {
	v, ok := kv[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolOr(kv map[string]string, key string, def bool) bool {
	v, ok := kv[key]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func stringOr(kv map[string]string, key, def string) string {
	if v, ok := kv[key]; ok {
		return v
	}
	return def
}
