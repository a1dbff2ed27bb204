// internal/node/codec.go
package node

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding: identical records produce
// identical bytes on the wire.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("node: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("node: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// DecodeFloats decodes a goal payload: a CBOR array of numbers.
func DecodeFloats(data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("node: empty payload")
	}
	var out []float64
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("node: payload is not a float sequence: %w", err)
	}
	return out, nil
}
