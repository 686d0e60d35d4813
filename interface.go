package powerlink

// NetworkInterface is the external network I/O collaborator (spec §6.4).
// It is deliberately narrow: the engine never retries at this layer, and
// pkg/sdo's sequence layer does not retransmit either, so every method
// simply reports success or IoError.
type NetworkInterface interface {
	LocalMAC() MacAddress
	SendFrame(payload []byte) error
	// ReceiveFrame fills buf and returns the number of bytes read, or 0 if
	// no frame is currently available.
	ReceiveFrame(buf []byte) (int, error)
	SendUDP(ip [4]byte, port uint16, payload []byte) error
	// ReceiveUDP returns (n, ip, port, true) if a datagram was available.
	ReceiveUDP(buf []byte) (n int, ip [4]byte, port uint16, ok bool, err error)
	SetReadTimeout(us uint32) error
}

// PersistenceBackend is the storage collaborator for ReadWriteStore OD
// entries (spec §6.3). Load is consulted once during OD.Init; Store is
// invoked after every successful write to a ReadWriteStore entry. A
// failing Store must not be treated as a protocol error by the caller.
type PersistenceBackend interface {
	Load(index uint16, subIndex uint8) (value []byte, ok bool)
	Store(index uint16, subIndex uint8, value []byte) error
}

// ConfigurationInterface is the MN-only collaborator used during
// BOOT_STEP1 identity and Concise-DCF checks (spec §4.4.4, §6.5).
type ConfigurationInterface interface {
	GetExpectedIdentity(node NodeId) (Identity, bool)
	GetConfiguration(node NodeId) ([]byte, error)
	IsSoftwareUpdateRequired(node NodeId, receivedDate, receivedTime uint16) bool
}

// Identity mirrors OD 0x1018 (Identity Object).
type Identity struct {
	DeviceType  uint32
	VendorId    uint32
	ProductCode uint32
	Revision    uint32
	Serial      uint32
}

// ActionKind discriminates the three possible outcomes of a RunCycle call.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionSendEthernetFrame
	ActionSendUDP
)

// Action is the single side effect produced by one RunCycle invocation,
// per spec §2/§5. Exactly one Action is returned per call; the embedding
// loop performs the I/O itself.
type Action struct {
	Kind  ActionKind
	Bytes []byte
	IP    [4]byte
	Port  uint16
}

// NoAction is the zero-effect result.
var NoAction = Action{Kind: ActionNone}

// SendEthernetFrame builds an Action that asks the embedding loop to
// transmit an Ethernet frame.
func SendEthernetFrame(bytes []byte) Action {
	return Action{Kind: ActionSendEthernetFrame, Bytes: bytes}
}

// SendUDP builds an Action that asks the embedding loop to transmit a UDP
// datagram to the given destination.
func SendUDP(ip [4]byte, port uint16, bytes []byte) Action {
	return Action{Kind: ActionSendUDP, Bytes: bytes, IP: ip, Port: port}
}
