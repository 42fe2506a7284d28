package gateway

import "fmt"

// Segment is the account/market type an operation targets. It is a closed
// set: orders and positions carry it explicitly instead of branching on
// exchange-specific string codes.
type Segment int

const (
	Spot Segment = iota
	Future
)

// SegmentCodes lists the valid wire codes, in Segment order.
var SegmentCodes = []string{"spot", "future"}

func (s Segment) String() string {
	switch s {
	case Spot:
		return "spot"
	case Future:
		return "future"
	default:
		return fmt.Sprintf("segment(%d)", int(s))
	}
}

// ParseSegment maps a wire code to a Segment. Unknown codes fail with an
// InvalidSegmentError that names the accepted codes.
func ParseSegment(code string) (Segment, error) {
	switch code {
	case "spot":
		return Spot, nil
	case "future":
		return Future, nil
	default:
		return 0, &InvalidSegmentError{Code: code}
	}
}

// InvalidSegmentError reports a request for an unsupported account segment.
type InvalidSegmentError struct {
	Code string
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("invalid segment %q (valid: %s, %s)", e.Code, SegmentCodes[0], SegmentCodes[1])
}
