package price

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout means the price API did not answer within the request timeout.
	ErrTimeout = errors.New("price API request timed out")
	// ErrInvalidResponse means the body was not a JSON object of objects.
	ErrInvalidResponse = errors.New("invalid response from price API")
	// ErrNetwork covers transport failures other than timeouts.
	ErrNetwork = errors.New("price API unreachable")
	// ErrInvalidCoinID is returned before any request is made.
	ErrInvalidCoinID = errors.New("invalid coin id")
	// ErrUnsupportedCurrency is returned before any request is made.
	ErrUnsupportedCurrency = errors.New("unsupported fiat currency")
)

// UpstreamError carries a non-2xx status from the price API.
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("price API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("price API error: %s", e.Status)
}

// IsValidationError reports whether err was raised while checking the input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCoinID) || errors.Is(err, ErrUnsupportedCurrency)
}
