// Package sim provides deterministic in-memory collaborators for tests and
// scenario runs. One Market instance backs all three read-side oracle
// interfaces so a scripted scenario has a single source of truth.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/hedger/oracle"
)

type Market struct {
	mu       sync.Mutex
	prices   map[string]oracle.Sample
	rates    map[string]uint64
	balances map[string]map[string]uint64 // asset -> account -> held
}

func NewMarket() *Market {
	return &Market{
		prices:   make(map[string]oracle.Sample),
		rates:    make(map[string]uint64),
		balances: make(map[string]map[string]uint64),
	}
}

// SetPrice installs the latest sample for an oracle ID.
func (m *Market) SetPrice(oracleID string, price int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[oracleID] = oracle.Sample{Price: price, Time: at}
}

// DropPrice removes a sample so the next Latest fails, simulating an
// unavailable feed.
func (m *Market) DropPrice(oracleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prices, oracleID)
}

func (m *Market) Latest(ctx context.Context, oracleID string) (oracle.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.prices[oracleID]
	if !ok {
		return oracle.Sample{}, fmt.Errorf("%w: no sample for %q", oracle.ErrFeedUnavailable, oracleID)
	}
	return s, nil
}

// SetRate installs the conversion rate for a base currency oracle ID.
func (m *Market) SetRate(baseOracleID string, rate uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[baseOracleID] = rate
}

func (m *Market) Rate(ctx context.Context, baseOracleID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rates[baseOracleID]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %q", oracle.ErrFeedUnavailable, baseOracleID)
	}
	return r, nil
}

// SetBalance installs an account's holdings of an asset. Unknown accounts
// hold zero; that is a valid answer, not an error.
func (m *Market) SetBalance(asset, account string, held uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[asset] == nil {
		m.balances[asset] = make(map[string]uint64)
	}
	m.balances[asset][account] = held
}

func (m *Market) BalanceOf(ctx context.Context, asset, account string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[asset][account], nil
}
