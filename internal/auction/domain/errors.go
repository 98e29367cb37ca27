package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction is closed")
	ErrAlreadyClosed   = errors.New("auction is already closed")
	ErrNotClosed       = errors.New("auction is not closed yet")
	ErrForbidden       = errors.New("caller is not allowed to perform this operation")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidBidder   = errors.New("bidder id and contact are required")
	ErrUnavailable     = errors.New("store unavailable, try again")
)

// BidTooLowError rejects a bid that does not exceed the recorded price. It
// carries the price the bid was checked against so the caller can retry
// with a corrected amount.
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: current price is %s", e.CurrentPrice.String())
}
