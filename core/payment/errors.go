package payment

import (
	"errors"
	"fmt"
)

var (
	ErrStoreNotFound     = errors.New("store not found")
	ErrStoreNotConnected = errors.New("store is not connected to stripe")
	ErrAlreadyConnected  = errors.New("store is already connected to stripe")
	ErrUnauthorized      = errors.New("not the owner of the store")
	ErrNotSucceeded      = errors.New("payment has not succeeded")
	ErrMismatch          = errors.New("payment does not belong to this checkout")
	ErrIntentNotFound    = errors.New("payment intent not found")
	ErrPaymentPending    = errors.New("a payment for this checkout is already processing")
	ErrProvider          = errors.New("payment provider error")
)

// ProviderError is a failed call to the payment provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }
