package gateway

import (
	"errors"
	"fmt"
)

// NetworkError wraps a transport-level failure (dial, timeout, broken
// connection). The exchange never saw, or never answered, the request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExchangeError is a rejection reported by the exchange itself. The message
// is kept verbatim so operators can correlate with exchange-side logs.
type ExchangeError struct {
	Op      string
	Code    int64
	Message string
}

func (e *ExchangeError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: exchange error %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: exchange error: %s", e.Op, e.Message)
}

// ErrInsufficientFunds marks exchange rejections caused by a lack of free
// balance. Retry loops treat it as "the order already filled elsewhere".
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError carries the exchange message for the balance race.
type InsufficientFundsError struct {
	Op      string
	Message string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: insufficient funds: %s", e.Op, e.Message)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// IsNetwork reports whether err originated below the exchange.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsExchange reports whether err is a rejection from the exchange.
func IsExchange(err error) bool {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return true
	}
	var ie *InsufficientFundsError
	return errors.As(err, &ie)
}
