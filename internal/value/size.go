package value

// Scalar costs used by EstimateSize for leaves that carry no byte payload.
const (
	numberSize = 8
	boolSize   = 4
)

// EstimateSize returns the approximate stored size of v in bytes: the UTF-8
// length of strings, the raw length of binary leaves and the sum over array
// items and map values. Map keys are not counted.
func EstimateSize(v Value) int64 {
	switch v.kind {
	case KindString:
		return int64(len(v.str))
	case KindBinary:
		return int64(len(v.bin))
	case KindNumber:
		return numberSize
	case KindBool:
		return boolSize
	case KindArray:
		var n int64
		for _, e := range v.items {
			n += EstimateSize(e)
		}
		return n
	case KindMap:
		var n int64
		for _, e := range v.props {
			n += EstimateSize(e)
		}
		return n
	}
	return 0
}

// HasBinary reports whether any leaf of v is binary.
func HasBinary(v Value) bool {
	switch v.kind {
	case KindBinary:
		return true
	case KindArray:
		for _, e := range v.items {
			if HasBinary(e) {
				return true
			}
		}
	case KindMap:
		for _, e := range v.props {
			if HasBinary(e) {
				return true
			}
		}
	}
	return false
}
