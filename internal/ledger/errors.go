package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrStockExceeded  = errors.New("requested quantity exceeds available stock")
	ErrItemNotFound   = errors.New("item not found in cart")
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrMissingAddress = errors.New("shipping address is required")
)

// RemoteError reports a failed order submission. Message holds the
// server-provided reason when the remote system supplied one, otherwise a
// generic description of the transport failure.
type RemoteError struct {
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order submission failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("order submission failed: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
