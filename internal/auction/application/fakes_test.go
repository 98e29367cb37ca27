package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/astalive/astalive/internal/auction/domain"
	"github.com/astalive/astalive/internal/shared/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the ledger store. Its mutex plays
// the role of the per-auction row lock: fakeRunner holds it for the whole
// transaction body, so concurrent submissions serialize exactly like they
// do against Postgres.
type fakeStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]*domain.Bid
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
	}
}

func copyAuction(a *domain.Auction) *domain.Auction {
	c := *a
	return &c
}

type fakeRunner struct {
	store *fakeStore
}

func (r *fakeRunner) InTx(ctx context.Context, fn db.TxFn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(ctx, nil)
}

// runnerFunc adapts a function to db.Runner for failure-injection tests.
type runnerFunc func(ctx context.Context, fn db.TxFn) error

func (f runnerFunc) InTx(ctx context.Context, fn db.TxFn) error {
	return f(ctx, fn)
}

type fakeAuctionRepo struct {
	store *fakeStore
}

func (r *fakeAuctionRepo) Create(ctx context.Context, a *domain.Auction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	// Like the real store, timestamps are assigned on insert and read back
	// into the caller's snapshot.
	r.store.seq++
	a.CreatedAt = time.Unix(int64(r.store.seq), 0).UTC()
	a.UpdatedAt = a.CreatedAt
	r.store.auctions[a.ID] = copyAuction(a)
	return nil
}

func (r *fakeAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return copyAuction(a), nil
}

func (r *fakeAuctionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	// The caller already holds the store lock via fakeRunner.
	a, ok := r.store.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return copyAuction(a), nil
}

func (r *fakeAuctionRepo) Save(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	// Called inside the transaction body; lock already held.
	if _, ok := r.store.auctions[a.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	r.store.seq++
	a.UpdatedAt = time.Unix(int64(r.store.seq), 0).UTC()
	c := copyAuction(a)
	c.CreatedAt = r.store.auctions[a.ID].CreatedAt
	r.store.auctions[a.ID] = c
	return nil
}

func (r *fakeAuctionRepo) List(ctx context.Context, filter domain.ListFilter, userID string) ([]*domain.Auction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*domain.Auction
	for _, a := range r.store.auctions {
		switch filter {
		case domain.FilterAll:
		case domain.FilterActive:
			if a.State != domain.StateActive {
				continue
			}
		case domain.FilterClosed:
			if a.State != domain.StateClosed {
				continue
			}
		case domain.FilterWonBy:
			if a.WinnerID != userID {
				continue
			}
		}
		out = append(out, copyAuction(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type fakeBidRepo struct {
	store *fakeStore
}

func (r *fakeBidRepo) Append(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	// Called inside the transaction body; lock already held.
	b := *bid
	r.store.bids[bid.AuctionID] = append(r.store.bids[bid.AuctionID], &b)
	return nil
}

func (r *fakeBidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bids := r.store.bids[auctionID]
	out := make([]*domain.Bid, len(bids))
	for i, b := range bids {
		c := *b
		out[i] = &c
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AcceptedAt.Before(out[j].AcceptedAt)
	})
	return out, nil
}

// testEnv bundles the fakes with ready-made use cases.
type testEnv struct {
	store    *fakeStore
	auctions *fakeAuctionRepo
	bids     *fakeBidRepo
	runner   *fakeRunner
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	return &testEnv{
		store:    store,
		auctions: &fakeAuctionRepo{store: store},
		bids:     &fakeBidRepo{store: store},
		runner:   &fakeRunner{store: store},
	}
}

func (e *testEnv) seedAuction(startingPrice string) *domain.Auction {
	price, err := decimal.NewFromString(startingPrice)
	if err != nil {
		panic(err)
	}
	a, err := domain.NewAuction("signed jersey", "match worn", price, "admin-1", "", "")
	if err != nil {
		panic(err)
	}
	if err := (&fakeAuctionRepo{store: e.store}).Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
