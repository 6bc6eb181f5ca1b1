package stockdata

import (
	"errors"
	"time"

	"github.com/wonny/stockrank/internal/external/ibkr"
)

// ErrCacheMiss is returned by a Store that holds no entry for the account
var ErrCacheMiss = errors.New("stock data not found in cache")

// StockData is everything the factor extraction needs, as downloaded at Timestamp
type StockData struct {
	AccountID        string                            `json:"account_id"`
	Timestamp        time.Time                         `json:"timestamp"`
	Portfolio        []ibkr.Position                   `json:"portfolio"`
	MarketSnapshot   map[ibkr.ContractID]ibkr.Snapshot `json:"market_snapshot"`
	ShortTermHistory map[ibkr.ContractID][]ibkr.Bar    `json:"short_term_market_history"`
	LongTermHistory  map[ibkr.ContractID][]ibkr.Bar    `json:"long_term_market_history"`
}

// Age returns how old the data is relative to now
func (d *StockData) Age(now time.Time) time.Duration {
	return now.Sub(d.Timestamp)
}

// Status describes the cache entry of an account
type Status struct {
	Backend   string        `json:"backend"`
	Present   bool          `json:"present"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	Age       time.Duration `json:"age,omitempty"`
	Fresh     bool          `json:"fresh"`
	Positions int           `json:"positions"`
}

// History windows requested from the gateway
const (
	ShortTermPeriod = "1y"
	ShortTermBar    = "1d"
	LongTermPeriod  = "6y"
	LongTermBar     = "1m" // monthly
)
