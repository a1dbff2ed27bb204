// internal/bus/feetech/protocol.go
package feetech

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Instruction codes (STS series).
const (
	instPing      byte = 0x01
	instSyncRead  byte = 0x82
	instSyncWrite byte = 0x83
)

const (
	broadcastID byte = 0xFE

	// MaxID is the highest addressable servo id.
	MaxID uint8 = 0xFD
)

// Control table addresses used by the bridge.
const (
	regGoalPosition    byte = 42
	regPresentPosition byte = 56
	positionSize       byte = 2
)

// Position encoding: 4096 steps per revolution, 2048 is the centre.
const (
	stepsPerRev  = 4096
	centerSteps  = 2048
	maxSteps     = stepsPerRev - 1
	pingRespSize = 6
)

// STS servos are little-endian on the wire.
var byteOrder = binary.LittleEndian

// packet is one decoded status packet.
type packet struct {
	ID     byte
	Status StatusError
	Params []byte
}

// encode builds: FF FF id len inst params... checksum
// len counts inst + params + checksum.
func encode(id, inst byte, params []byte) []byte {
	buf := make([]byte, 0, 6+len(params))
	buf = append(buf, 0xFF, 0xFF, id, byte(len(params)+2), inst)
	buf = append(buf, params...)
	return append(buf, checksum(buf[2:]))
}

func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}

// decode parses one status packet from data, skipping leading noise.
// Returns the packet and the number of bytes consumed.
func decode(data []byte) (packet, int, error) {
	start := -1
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1] == 0xFF {
			start = i
			break
		}
	}
	if start < 0 {
		return packet{}, 0, errors.New("feetech: header not found")
	}

	data = data[start:]
	if len(data) < pingRespSize {
		return packet{}, 0, errors.New("feetech: packet too short")
	}

	length := int(data[3])
	total := 4 + length
	if length < 2 || len(data) < total {
		return packet{}, 0, fmt.Errorf("feetech: incomplete packet: need %d bytes, have %d", total, len(data))
	}

	want := checksum(data[2 : total-1])
	if got := data[total-1]; got != want {
		return packet{}, 0, fmt.Errorf("feetech: checksum mismatch: expected 0x%02X, got 0x%02X", want, got)
	}

	pkt := packet{
		ID:     data[2],
		Status: StatusError(data[4]),
	}
	if n := length - 2; n > 0 {
		pkt.Params = append([]byte(nil), data[5:5+n]...)
	}
	return pkt, start + total, nil
}

// decodeAll parses up to count packets, resynchronising on the next
// header after a corrupt one.
func decodeAll(data []byte, count int) []packet {
	out := make([]packet, 0, count)
	for len(out) < count && len(data) > 0 {
		pkt, n, err := decode(data)
		if err != nil {
			next := -1
			for j := 1; j+1 < len(data); j++ {
				if data[j] == 0xFF && data[j+1] == 0xFF {
					next = j
					break
				}
			}
			if next < 0 {
				break
			}
			data = data[next:]
			continue
		}
		out = append(out, pkt)
		data = data[n:]
	}
	return out
}

func pingPacket(id uint8) []byte {
	return encode(id, instPing, nil)
}

// syncWritePacket writes one 2-byte word per id at addr, in ids order.
func syncWritePacket(addr byte, ids []uint8, words []uint16) []byte {
	params := make([]byte, 0, 2+len(ids)*3)
	params = append(params, addr, positionSize)
	for i, id := range ids {
		params = append(params, id)
		params = byteOrder.AppendUint16(params, words[i])
	}
	return encode(broadcastID, instSyncWrite, params)
}

func syncReadPacket(addr byte, ids []uint8) []byte {
	params := make([]byte, 0, 2+len(ids))
	params = append(params, addr, positionSize)
	params = append(params, ids...)
	return encode(broadcastID, instSyncRead, params)
}

// toSteps converts radians to a raw position, clamped to the encoder range.
func toSteps(rad float64) uint16 {
	steps := math.Round(rad*stepsPerRev/(2*math.Pi)) + centerSteps
	if steps < 0 {
		steps = 0
	}
	if steps > maxSteps {
		steps = maxSteps
	}
	return uint16(steps)
}

// fromSteps converts a raw position to radians.
func fromSteps(raw uint16) float64 {
	return (float64(raw) - centerSteps) * 2 * math.Pi / stepsPerRev
}
