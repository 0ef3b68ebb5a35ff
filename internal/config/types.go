// Package config implements the key/value configuration file format this
// bridge is driven by: a flat "key=value" file grouping per-device and
// per-Bridge options under a 4-digit ID suffix. The grouping and grammar
// follow the reference rax25kb config loader exactly (NNNN-suffixed
// keys, a default cross-connect synthesized when none is declared,
// tcp:/serial: endpoint grammar); no third-party key/value library in
// the retrieval pack matched this NNNN-grouped convention closely enough
// to be worth adopting over a direct implementation (see DESIGN.md).
package config

// FlowControl enumerates the serial flow-control modes a physical
// device may declare.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowSoftware
	FlowHardware
	FlowDtrDsr
)

// Parity enumerates the serial parity modes a physical device may
// declare.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// EndpointKind distinguishes the two endpoint grammars a Bridge may
// connect.
type EndpointKind int

const (
	EndpointTCP EndpointKind = iota
	EndpointSerial
)

// Endpoint is the parsed form of one side of a cross_connectNNNN value.
type Endpoint struct {
	Kind EndpointKind

	// TCP fields.
	Address string
	Port    uint16

	// Serial fields.
	DeviceID string
	Channel  int
}

// PhysicalDevice is one serial_portNNNN declaration.
type PhysicalDevice struct {
	ID            string
	Device        string
	Baud          int
	FlowControl   FlowControl
	StopBits      int
	Parity        Parity
	DataBits      int
	ExtendedKISS  bool
}

// Bridge is one cross_connectNNNN declaration.
type Bridge struct {
	ID       string
	A, B     Endpoint
	PhilFlag bool
	Dump     bool
	ParseKISS bool
	DumpAX25 bool
	RawCopy  bool
	KissCopy bool
	KissChan int

	XKISSMode         bool
	XKISSPort         int
	XKISSChecksum     bool
	XKISSPolling      bool
	XKISSPollTimerMS  int
	XKISSRxBufferSize int

	AGWEnable bool
	AGWPort   int
}

// Resolved is the validated, typed output of Load: the only shape the
// rest of the system ever sees.
type Resolved struct {
	Devices map[string]PhysicalDevice
	Bridges []Bridge

	MaxTCPClients int

	AGWServerEnable bool
	AGWServerAddr   string
	AGWServerPort   uint16
	AGWMaxClients   int

	LogLevel     int
	Logfile      string
	LogToConsole bool
	PCAPFile     string
	PIDFile      string
	QuietStartup bool
}
