// Package cryptoservice manages business logic layer of crypto trading.
package cryptoservice

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
)

// Epsilon is the amount below which a holding is closed.
var Epsilon = decimal.New(1, -6)

// AccountStore finds the account trades settle against.
type AccountStore interface {
	FindByCategory(ctx context.Context, category domain.Category) (domain.Account, error)
}

// Ledger moves the settlement money and records an entry for it.
type Ledger interface {
	Record(ctx context.Context, arg domain.RecordEntryParams) (domain.Transaction, decimal.Decimal, error)
}

// Publisher receives trade events.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event)
}

// Service facilitates crypto trading logic. Trades settle against the checking account.
type Service struct {
	mu       sync.Mutex
	holdings map[string]*domain.Holding
	accounts AccountStore
	ledger   Ledger
	feeRate  decimal.Decimal
	clock    clockpkg.Clock
	events   Publisher
}

// New returns crypto service struct charging feeRate on every trade.
func New(as AccountStore, ledger Ledger, feeRate decimal.Decimal, clock clockpkg.Clock, events Publisher) *Service {
	return &Service{
		holdings: make(map[string]*domain.Holding),
		accounts: as,
		ledger:   ledger,
		feeRate:  feeRate,
		clock:    clock,
		events:   events,
	}
}

func validOrder(assetID string, amount, price decimal.Decimal) error {
	switch {
	case assetID == "":
		return domain.ErrInvalidAsset
	case !amount.IsPositive():
		return domain.ErrInvalidAmount
	case !price.IsPositive():
		return domain.ErrInvalidPrice
	}

	return nil
}

// Buy spends usdAmount plus fee from the checking account on assetID at price.
func (s *Service) Buy(ctx context.Context, assetID string, usdAmount, price decimal.Decimal) (domain.Trade, error) {
	l := zerolog.Ctx(ctx)

	if err := validOrder(assetID, usdAmount, price); err != nil {
		l.Info().Err(err).Send()
		return domain.Trade{}, err
	}

	trade, err := s.buy(ctx, assetID, usdAmount, price)
	if err != nil {
		s.events.Publish(ctx, s.rejected(domain.SideBuy, assetID, usdAmount, err))
		return domain.Trade{}, err
	}

	s.events.Publish(ctx, s.executed(trade))

	return trade, nil
}

func (s *Service) buy(ctx context.Context, assetID string, usdAmount, price decimal.Decimal) (domain.Trade, error) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.accounts.FindByCategory(ctx, domain.CategoryChecking)
	if err != nil {
		l.Info().Err(err).Msg("no checking account to settle against")
		return domain.Trade{}, err
	}

	fee := usdAmount.Mul(s.feeRate)
	total := usdAmount.Add(fee)

	entry, balance, err := s.ledger.Record(ctx, domain.RecordEntryParams{
		AccountID:    account.ID,
		Kind:         domain.KindTrade,
		Direction:    domain.DirectionDebit,
		Amount:       usdAmount,
		Fee:          fee,
		Counterparty: assetID,
		Purpose:      "buy " + assetID,
	})
	if err != nil {
		l.Info().Err(err).Str("asset_id", assetID).Send()
		return domain.Trade{}, err
	}

	received := usdAmount.Div(price)

	h, ok := s.holdings[assetID]
	if ok {
		cost := h.AvgBuyPrice.Mul(h.Amount).Add(price.Mul(received))
		h.Amount = h.Amount.Add(received)
		h.AvgBuyPrice = cost.Div(h.Amount)
	} else {
		h = &domain.Holding{AssetID: assetID, Amount: received, AvgBuyPrice: price}
		s.holdings[assetID] = h
	}

	held := *h

	return domain.Trade{
		Side:      domain.SideBuy,
		AssetID:   assetID,
		Amount:    received,
		Price:     price,
		Fee:       fee,
		Total:     total,
		AccountID: account.ID,
		Balance:   balance,
		Holding:   &held,
		EntryID:   entry.ID,
	}, nil
}

// Sell sells cryptoAmount of assetID at price and credits the proceeds less fee.
func (s *Service) Sell(ctx context.Context, assetID string, cryptoAmount, price decimal.Decimal) (domain.Trade, error) {
	l := zerolog.Ctx(ctx)

	if err := validOrder(assetID, cryptoAmount, price); err != nil {
		l.Info().Err(err).Send()
		return domain.Trade{}, err
	}

	trade, err := s.sell(ctx, assetID, cryptoAmount, price)
	if err != nil {
		s.events.Publish(ctx, s.rejected(domain.SideSell, assetID, cryptoAmount.Mul(price), err))
		return domain.Trade{}, err
	}

	s.events.Publish(ctx, s.executed(trade))

	return trade, nil
}

func (s *Service) sell(ctx context.Context, assetID string, cryptoAmount, price decimal.Decimal) (domain.Trade, error) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holdings[assetID]
	if !ok || cryptoAmount.GreaterThan(h.Amount) {
		l.Info().Str("asset_id", assetID).Str("amount", cryptoAmount.String()).Msg("sell refused")
		return domain.Trade{}, domain.ErrInsufficientHoldings
	}

	account, err := s.accounts.FindByCategory(ctx, domain.CategoryChecking)
	if err != nil {
		l.Info().Err(err).Msg("no checking account to settle against")
		return domain.Trade{}, err
	}

	proceeds := cryptoAmount.Mul(price)
	fee := proceeds.Mul(s.feeRate)
	net := proceeds.Sub(fee)

	entry, balance, err := s.ledger.Record(ctx, domain.RecordEntryParams{
		AccountID:    account.ID,
		Kind:         domain.KindTrade,
		Direction:    domain.DirectionCredit,
		Amount:       proceeds,
		Fee:          fee,
		Counterparty: assetID,
		Purpose:      "sell " + assetID,
	})
	if err != nil {
		l.Error().Err(err).Int32("account_id", account.ID).Send()
		return domain.Trade{}, err
	}

	h.Amount = h.Amount.Sub(cryptoAmount)

	trade := domain.Trade{
		Side:      domain.SideSell,
		AssetID:   assetID,
		Amount:    cryptoAmount,
		Price:     price,
		Fee:       fee,
		Total:     net,
		AccountID: account.ID,
		Balance:   balance,
		EntryID:   entry.ID,
	}

	if h.Amount.LessThan(Epsilon) {
		delete(s.holdings, assetID)
	} else {
		held := *h
		trade.Holding = &held
	}

	return trade, nil
}

// Holdings returns every open holding ordered by asset id.
func (s *Service) Holdings(ctx context.Context) []domain.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		items = append(items, *h)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].AssetID < items[j].AssetID })

	return items
}

func (s *Service) executed(t domain.Trade) domain.Event {
	entryID := t.EntryID

	e := domain.NewEvent(domain.EventTradeExecuted, s.clock.Now()).WithAmount(t.Total)
	e.AccountID = t.AccountID
	e.TransactionID = &entryID
	e.AssetID = t.AssetID
	e.Side = t.Side

	return e
}

func (s *Service) rejected(side domain.Side, assetID string, amount decimal.Decimal, reason error) domain.Event {
	e := domain.NewEvent(domain.EventTradeRejected, s.clock.Now()).WithAmount(amount)
	e.AssetID = assetID
	e.Side = side
	e.Reason = reason.Error()

	return e
}
