package watchtower

import "fmt"

// FeeShareScale is the denominator applied when interpreting a 20-bit fee
// share field as parts of the total: a fee share is expressed as a 20-bit
// fraction packed into a PSBT input's nSequence field.
const FeeShareScale = 1 << 20

// ErrFeeShareOverflow is returned when a fee share value does not fit in
// the 20 bits allotted to it within the sequence field.
var ErrFeeShareOverflow = fmt.Errorf("fee share exceeds 20 bits")

// ValidateFeeShare checks that share fits in 20 bits, a fatal
// precondition failure that must abort PSBT assembly before it proceeds.
func ValidateFeeShare(share uint32) error {
	if share >= FeeShareScale {
		return ErrFeeShareOverflow
	}
	return nil
}
