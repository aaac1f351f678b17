package checkout

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const defaultPinLength = 6

// newDeliveryPin returns a numeric pin of the given length.
func newDeliveryPin(length int) (string, error) {
	if length <= 0 {
		length = defaultPinLength
	}
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate delivery pin: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
