package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("Listing not found")
	ErrAuctionClosed       = errors.New("Auction has ended")
	ErrBidTooLow           = errors.New("Bid is below the minimum")
	ErrSelfBidForbidden    = errors.New("You cannot bid on your own listing")
	ErrValidation          = errors.New("Validation failed")
	ErrStorageUnavailable  = errors.New("Storage unavailable, please retry")
	ErrNotificationFailure = errors.New("Notification could not be delivered")
	ErrForbidden           = errors.New("User is Forbidden from performing this action")

	ErrBuyNowUnavailable error = &ValidationError{Field: "buy_now_price", Message: "Buy now is not available for this listing"}
	ErrListingLocked     error = &ValidationError{Field: "listing", Message: "Pricing and end date cannot change once bids exist"}
)

// BidTooLowError carries the smallest amount the listing would have accepted.
type BidTooLowError struct {
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("Bid must be at least $%s", e.Minimum.StringFixed(2))
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is shorthand for a field-level ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
