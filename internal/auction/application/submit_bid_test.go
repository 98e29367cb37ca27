package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/shared/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testClock hands out strictly increasing timestamps so bid logs order
// deterministically even when accepts happen within the same nanosecond.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newSubmitUC(e *testEnv) *SubmitBidUseCase {
	uc := NewSubmitBidUseCase(e.runner, e.auctions, e.bids)
	uc.now = newTestClock().Now
	return uc
}

func TestSubmitBid_Accepted(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("10")
	uc := newSubmitUC(e)

	snap, err := uc.Execute(context.Background(), SubmitBidInput{
		AuctionID:     a.ID,
		BidderID:      "u1",
		BidderContact: "u1@example.com",
		Amount:        dec("15"),
	})
	require.NoError(t, err)
	require.True(t, snap.CurrentPrice.Equal(dec("15")))
	require.Equal(t, "u1", snap.LastBidderID)

	bids, err := e.bids.ListByAuction(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.True(t, bids[0].Amount.Equal(dec("15")))
}

func TestSubmitBid_Rejections(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("10")
	uc := newSubmitUC(e)
	ctx := context.Background()

	t.Run("unknown_auction", func(t *testing.T) {
		_, err := uc.Execute(ctx, SubmitBidInput{
			AuctionID: uuid.New(), BidderID: "u1", BidderContact: "u1@example.com", Amount: dec("15"),
		})
		require.ErrorIs(t, err, domain.ErrAuctionNotFound)
	})

	t.Run("too_low_reports_current_price", func(t *testing.T) {
		_, err := uc.Execute(ctx, SubmitBidInput{
			AuctionID: a.ID, BidderID: "u1", BidderContact: "u1@example.com", Amount: dec("10"),
		})
		var tooLow *domain.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		require.True(t, tooLow.CurrentPrice.Equal(dec("10")))
	})

	t.Run("missing_identity", func(t *testing.T) {
		_, err := uc.Execute(ctx, SubmitBidInput{
			AuctionID: a.ID, BidderID: "", BidderContact: "", Amount: dec("15"),
		})
		require.ErrorIs(t, err, domain.ErrInvalidBidder)
	})

	t.Run("rejection_leaves_no_trace", func(t *testing.T) {
		bids, err := e.bids.ListByAuction(ctx, a.ID)
		require.NoError(t, err)
		require.Empty(t, bids)

		stored, err := e.auctions.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, stored.CurrentPrice.Equal(dec("10")))
	})
}

// Price starts at 10: A bids 15 (accepted), B bids 12 (too low, told the
// price is now 15), B bids 20 (accepted, B becomes last bidder).
func TestSubmitBid_SequentialBiddersScenario(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("10")
	uc := newSubmitUC(e)
	ctx := context.Background()

	snap, err := uc.Execute(ctx, SubmitBidInput{
		AuctionID: a.ID, BidderID: "A", BidderContact: "a@example.com", Amount: dec("15"),
	})
	require.NoError(t, err)
	require.True(t, snap.CurrentPrice.Equal(dec("15")))

	_, err = uc.Execute(ctx, SubmitBidInput{
		AuctionID: a.ID, BidderID: "B", BidderContact: "b@example.com", Amount: dec("12"),
	})
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.True(t, tooLow.CurrentPrice.Equal(dec("15")))

	snap, err = uc.Execute(ctx, SubmitBidInput{
		AuctionID: a.ID, BidderID: "B", BidderContact: "b@example.com", Amount: dec("20"),
	})
	require.NoError(t, err)
	require.True(t, snap.CurrentPrice.Equal(dec("20")))
	require.Equal(t, "B", snap.LastBidderID)
}

// Two bidders race 25 and 30 against a committed price of 20. Whatever the
// interleaving, the final price is 30 and the log never records an amount
// at or below its predecessor: either 25 lands first and then 30, or 30
// lands first and 25 is rejected as too low.
func TestSubmitBid_RacingBidders(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("10")
	uc := newSubmitUC(e)
	ctx := context.Background()

	_, err := uc.Execute(ctx, SubmitBidInput{
		AuctionID: a.ID, BidderID: "seed", BidderContact: "seed@example.com", Amount: dec("20"),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	amounts := []string{"25", "30"}
	for i, amt := range amounts {
		wg.Add(1)
		go func(i int, amt string) {
			defer wg.Done()
			_, errs[i] = uc.Execute(ctx, SubmitBidInput{
				AuctionID:     a.ID,
				BidderID:      fmt.Sprintf("racer-%d", i),
				BidderContact: fmt.Sprintf("racer-%d@example.com", i),
				Amount:        dec(amt),
			})
		}(i, amt)
	}
	wg.Wait()

	// The 30 bid always wins; the 25 bid is accepted only if it got in
	// first.
	require.NoError(t, errs[1])
	if errs[0] != nil {
		var tooLow *domain.BidTooLowError
		require.ErrorAs(t, errs[0], &tooLow)
		require.True(t, tooLow.CurrentPrice.Equal(dec("30")))
	}

	final, err := e.auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, final.CurrentPrice.Equal(dec("30")))

	bids, err := e.bids.ListByAuction(ctx, a.ID)
	require.NoError(t, err)
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount),
			"bid log must be strictly increasing, got %s then %s",
			bids[i-1].Amount, bids[i].Amount)
	}
	require.True(t, bids[len(bids)-1].Amount.Equal(dec("30")))
}

// Many goroutines hammer one auction; the committed log must be strictly
// increasing regardless of scheduling.
func TestSubmitBid_ManyConcurrentBidders(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("1")
	uc := newSubmitUC(e)
	ctx := context.Background()

	const bidders = 50
	var wg sync.WaitGroup
	errs := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Execute(ctx, SubmitBidInput{
				AuctionID:     a.ID,
				BidderID:      fmt.Sprintf("u%d", i),
				BidderContact: fmt.Sprintf("u%d@example.com", i),
				Amount:        dec("1").Add(dec(fmt.Sprintf("%d", i+1))),
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		var tooLow *domain.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
	}

	bids, err := e.bids.ListByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, accepted, len(bids))
	require.NotEmpty(t, bids)
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}

	final, err := e.auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, final.CurrentPrice.Equal(bids[len(bids)-1].Amount))
}

func TestSubmitBid_RetriesExhaustedSurfacesUnavailable(t *testing.T) {
	e := newTestEnv()
	a := e.seedAuction("10")

	exhausted := runnerFunc(func(ctx context.Context, fn db.TxFn) error {
		return fmt.Errorf("%w: serialization failure", db.ErrTxRetriesExhausted)
	})
	uc := NewSubmitBidUseCase(exhausted, e.auctions, e.bids)

	_, err := uc.Execute(context.Background(), SubmitBidInput{
		AuctionID: a.ID, BidderID: "u1", BidderContact: "u1@example.com", Amount: dec("15"),
	})
	require.ErrorIs(t, err, domain.ErrUnavailable)
}
