package heap

import "fmt"

// Tag is the discriminator stored in every block header. It selects how the payload
// is interpreted and whether the collector traces into it.
type Tag uint8

const (
	// TagTuple is the tag of ordinary algebraic data. Constructors of a variant type
	// use consecutive tags starting at TagTuple; every tag below TagNoScan other than
	// TagClosure is traced word by word.
	TagTuple Tag = 0
	// TagClosure marks a closure block. Only its bound arguments are traced.
	TagClosure Tag = 1
	// TagObject is used for exception constructors and other object-like records. It is
	// traced like a tuple.
	TagObject Tag = 248
	// TagNoScan is the first opaque tag: blocks with this tag or any higher tag hold
	// raw data that the collector never traces.
	TagNoScan Tag = 251
	// TagString marks a string or byte sequence. Its payload is data[0] = length as an
	// immediate, followed by packed bytes.
	TagString Tag = 252
)

var tagMapping = map[Tag]string{
	TagTuple:   "Tuple",
	TagClosure: "Closure",
	TagObject:  "Object",
	TagNoScan:  "NoScan",
	TagString:  "String",
}

func (t Tag) String() string {
	str, ok := tagMapping[t]
	if ok {
		return str
	}

	if t < TagNoScan {
		return fmt.Sprintf("Tuple(%d)", uint8(t))
	}
	return fmt.Sprintf("NoScan(%d)", uint8(t))
}

// Scannable reports whether the collector traces into blocks with this tag
func (t Tag) Scannable() bool {
	return t < TagNoScan
}
