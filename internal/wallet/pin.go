package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// PINLength is the exact number of ASCII digits in a PIN.
const PINLength = 6

// ValidatePIN accepts exactly six ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return fmt.Errorf("%w: PIN must be %d digits", stealth.ErrInvalidFormat, PINLength)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return fmt.Errorf("%w: PIN must contain only digits 0-9", stealth.ErrInvalidFormat)
		}
	}
	return nil
}
