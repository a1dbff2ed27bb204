// internal/status/constants.go
package status

// Node status block layout constants.
// These values define the mirror protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the node health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the class of the last dispatch failure.
const SlotLastErrorCode = 1

// SlotSecondsInError holds how long (in seconds) the node has been in error.
const SlotSecondsInError = 2

// SlotLinkState holds the bus connection state (see Link* codes).
const SlotLinkState = 3

// SlotMotorCount holds the number of registered motors.
const SlotMotorCount = 4

// ---- RESERVED RANGE ----

// Slots 5–10 are reserved for future use.
const SlotReservedStart = 5
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// SecondsInErrorMax is where seconds_in_error saturates.
const SecondsInErrorMax = 65535

// ---- HEALTH CODES ----

// HealthUnknown is the boot state, before any event was handled.
const HealthUnknown uint16 = 0

// HealthOK means the last event was handled successfully.
const HealthOK uint16 = 1

// HealthError means the last event failed.
const HealthError uint16 = 2

// ---- ERROR CODES ----

const (
	ErrorNone          uint16 = 0
	ErrorShapeMismatch uint16 = 1
	ErrorNotReady      uint16 = 2
	ErrorTransport     uint16 = 3
)

// ---- LINK STATES ----

const (
	LinkDisconnected uint16 = 0
	LinkVerifying    uint16 = 1
	LinkReady        uint16 = 2
)
