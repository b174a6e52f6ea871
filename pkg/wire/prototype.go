package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Prototype identifies the shape of a data message object.
type Prototype byte

// Prototype codes. The numbering leaves gaps for shapes not
// implemented here; codes ascend with object size.
const (
	PrototypeOneBool     Prototype = 1
	PrototypeOneUint8    Prototype = 2
	PrototypeOneInt8     Prototype = 3
	PrototypeTwoBools    Prototype = 4
	PrototypeTwoUint8s   Prototype = 5
	PrototypeTwoInt8s    Prototype = 6
	PrototypeOneUint16   Prototype = 7
	PrototypeOneInt16    Prototype = 8
	PrototypeThreeBools  Prototype = 9
	PrototypeThreeUint8s Prototype = 10
	PrototypeFourUint8s  Prototype = 13
	PrototypeTwoUint16s  Prototype = 15
	PrototypeOneUint32   Prototype = 17
	PrototypeOneInt32    Prototype = 18
	PrototypeOneFloat32  Prototype = 19
	PrototypeOneUint64   Prototype = 39
	PrototypeOneFloat64  Prototype = 41
)

// Size returns the object byte size of the prototype, 0 if unknown.
func (p Prototype) Size() int {
	switch p {
	case PrototypeOneBool, PrototypeOneUint8, PrototypeOneInt8:
		return 1
	case PrototypeTwoBools, PrototypeTwoUint8s, PrototypeTwoInt8s,
		PrototypeOneUint16, PrototypeOneInt16:
		return 2
	case PrototypeThreeBools, PrototypeThreeUint8s:
		return 3
	case PrototypeFourUint8s, PrototypeTwoUint16s,
		PrototypeOneUint32, PrototypeOneInt32, PrototypeOneFloat32:
		return 4
	case PrototypeOneUint64, PrototypeOneFloat64:
		return 8
	}
	return 0
}

// Pack encodes obj as the object bytes of the prototype.
// obj may be any fixed-size value whose encoded size matches.
func (p Prototype) Pack(obj interface{}) ([]byte, error) {
	size := p.Size()
	if size == 0 {
		return nil, fmt.Errorf("unknown prototype %d", byte(p))
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, obj); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, fmt.Errorf("object size %d mismatches prototype %d size %d",
			buf.Len(), byte(p), size)
	}
	return buf.Bytes(), nil
}

// Unpack decodes object bytes into the canonical value of the
// prototype (bool, uint16, [2]uint8, ...).
func (p Prototype) Unpack(b []byte) (interface{}, error) {
	size := p.Size()
	if size == 0 {
		return nil, fmt.Errorf("unknown prototype %d", byte(p))
	}
	if len(b) != size {
		return nil, fmt.Errorf("object size %d mismatches prototype %d size %d",
			len(b), byte(p), size)
	}
	r := bytes.NewReader(b)
	switch p {
	case PrototypeOneBool:
		var v bool
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneUint8:
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneInt8:
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeTwoBools:
		var v [2]bool
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeTwoUint8s:
		var v [2]uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeTwoInt8s:
		var v [2]int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneUint16:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneInt16:
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeThreeBools:
		var v [3]bool
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeThreeUint8s:
		var v [3]uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeFourUint8s:
		var v [4]uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeTwoUint16s:
		var v [2]uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneUint32:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneInt32:
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneFloat32:
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case PrototypeOneUint64:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	default:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	}
}

