package stats

import "github.com/fxamacker/cbor/v2"

// encMode is the CBOR encoder configured for Core Deterministic
// Encoding, so encoding the same snapshot twice produces identical
// bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("stats: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("stats: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeSnapshot encodes a snapshot to CBOR using Core Deterministic
// Encoding.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	return encMode.Marshal(snap)
}

// DecodeSnapshot decodes CBOR bytes produced by [EncodeSnapshot].
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := decMode.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
