package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestAuction(t *testing.T, startingPrice string) *Auction {
	t.Helper()
	a, err := NewAuction("vintage radio", "working condition", dec(startingPrice), "admin-1", "", "")
	require.NoError(t, err)
	return a
}

func TestNewAuction(t *testing.T) {
	a := newTestAuction(t, "10")

	require.Equal(t, StateActive, a.State)
	require.True(t, a.CurrentPrice.Equal(a.StartingPrice))
	require.Empty(t, a.LastBidderID)
	require.Empty(t, a.WinnerID)
}

func TestNewAuction_RejectsNonPositiveStartingPrice(t *testing.T) {
	for _, price := range []string{"0", "-5"} {
		_, err := NewAuction("x", "y", dec(price), "admin-1", "", "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestAcceptBid(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		bidder  string
		contact string
		amount  string
		wantErr error
	}{
		{name: "above_current_price", bidder: "u1", contact: "u1@example.com", amount: "15"},
		{name: "equal_to_current_price", bidder: "u1", contact: "u1@example.com", amount: "10", wantErr: &BidTooLowError{}},
		{name: "below_current_price", bidder: "u1", contact: "u1@example.com", amount: "9", wantErr: &BidTooLowError{}},
		{name: "zero_amount", bidder: "u1", contact: "u1@example.com", amount: "0", wantErr: ErrInvalidAmount},
		{name: "negative_amount", bidder: "u1", contact: "u1@example.com", amount: "-3", wantErr: ErrInvalidAmount},
		{name: "missing_bidder", bidder: "", contact: "u1@example.com", amount: "15", wantErr: ErrInvalidBidder},
		{name: "missing_contact", bidder: "u1", contact: "", amount: "15", wantErr: ErrInvalidBidder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAuction(t, "10")
			bid, err := a.AcceptBid(tc.bidder, tc.contact, dec(tc.amount), now)

			if tc.wantErr != nil {
				var tooLow *BidTooLowError
				if errors.As(tc.wantErr, &tooLow) {
					require.ErrorAs(t, err, &tooLow)
					require.True(t, tooLow.CurrentPrice.Equal(dec("10")))
				} else {
					require.ErrorIs(t, err, tc.wantErr)
				}
				// A rejected bid must not have touched the auction.
				require.True(t, a.CurrentPrice.Equal(dec("10")))
				require.Empty(t, a.LastBidderID)
				return
			}

			require.NoError(t, err)
			require.True(t, a.CurrentPrice.Equal(dec(tc.amount)))
			require.Equal(t, tc.bidder, a.LastBidderID)
			require.Equal(t, tc.contact, a.LastBidderContact)
			require.Equal(t, a.ID, bid.AuctionID)
			require.True(t, bid.Amount.Equal(dec(tc.amount)))
			require.Equal(t, now, bid.AcceptedAt)
		})
	}
}

func TestAcceptBid_ClosedAuction(t *testing.T) {
	a := newTestAuction(t, "10")
	require.NoError(t, a.Close())

	_, err := a.AcceptBid("u1", "u1@example.com", dec("100"), time.Now())
	require.ErrorIs(t, err, ErrAuctionClosed)
}

func TestAcceptBid_PriceIsStrictlyIncreasing(t *testing.T) {
	a := newTestAuction(t, "10")
	now := time.Now().UTC()

	amounts := []string{"15", "20", "20.01", "100"}
	prev := a.StartingPrice
	for _, amt := range amounts {
		_, err := a.AcceptBid("u1", "u1@example.com", dec(amt), now)
		require.NoError(t, err)
		require.True(t, a.CurrentPrice.GreaterThan(prev))
		prev = a.CurrentPrice
	}

	// Re-submitting the current price must fail.
	_, err := a.AcceptBid("u2", "u2@example.com", dec("100"), now)
	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.True(t, tooLow.CurrentPrice.Equal(dec("100")))
}

func TestClose(t *testing.T) {
	t.Run("captures_last_bidder_as_winner", func(t *testing.T) {
		a := newTestAuction(t, "10")
		_, err := a.AcceptBid("u2", "u2@example.com", dec("20"), time.Now())
		require.NoError(t, err)

		require.NoError(t, a.Close())
		require.Equal(t, StateClosed, a.State)
		require.Equal(t, "u2", a.WinnerID)
		require.Equal(t, "u2@example.com", a.WinnerContact)
	})

	t.Run("no_bids_means_no_winner", func(t *testing.T) {
		a := newTestAuction(t, "10")
		require.NoError(t, a.Close())
		require.Empty(t, a.WinnerID)
		require.Empty(t, a.WinnerContact)
	})

	t.Run("second_close_rejected", func(t *testing.T) {
		a := newTestAuction(t, "10")
		require.NoError(t, a.Close())
		require.ErrorIs(t, a.Close(), ErrAlreadyClosed)
	})
}
