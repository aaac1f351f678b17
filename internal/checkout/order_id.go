package checkout

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const orderRefPrefix = "ORD"

// newOrderRef builds the customer-facing order token.
func newOrderRef(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return orderRefPrefix + id.String(), nil
}
