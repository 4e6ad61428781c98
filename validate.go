package xmlindent

import "errors"

// ErrBinaryInput reports input that appears to be binary rather than XML text.
var ErrBinaryInput = errors.New("binary input detected")

const (
	minBinarySample = 64
	maxControlPct   = 2
	// SniffSize is how much of a file ValidateInput needs to decide.
	SniffSize = 8 * 1024
)

// ValidateInput returns ErrBinaryInput if src contains NUL bytes or too many
// control characters to be an XML document. Any encoding is accepted.
func ValidateInput(src []byte) error {
	var total, control int
	for _, b := range src {
		total++
		if b == 0x00 {
			return ErrBinaryInput
		}
		if isControlByte(b) {
			control++
		}
	}
	if total >= minBinarySample && control*100 >= total*maxControlPct {
		return ErrBinaryInput
	}
	return nil
}

func isControlByte(b byte) bool {
	if b < 0x09 {
		return true
	}
	if b > 0x0D && b < 0x20 {
		return true
	}
	if b == 0x7F {
		return true
	}
	return false
}
