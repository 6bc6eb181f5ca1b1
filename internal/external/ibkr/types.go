package ibkr

import (
	"fmt"
	"strconv"
	"strings"
)

// ContractID is the IBKR contract identifier (conid)
type ContractID int64

func (c ContractID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Position is a single portfolio position
type Position struct {
	Conid      ContractID `json:"conid"`
	Ticker     string     `json:"ticker"`
	Position   float64    `json:"position"`
	MktPrice   float64    `json:"mktPrice"`
	MktValue   float64    `json:"mktValue"`
	Currency   string     `json:"currency"`
	AssetClass string     `json:"assetClass"`
}

// Snapshot is the parsed market data snapshot of one contract.
// Missing fields stay nil.
type Snapshot struct {
	Conid         ContractID `json:"conid"`
	LastPrice     *float64   `json:"last_price,omitempty"`
	PERatio       *float64   `json:"pe_ratio,omitempty"`
	DividendYield *float64   `json:"dividend_yield,omitempty"` // fraction, 0.0052 = 0.52%
}

// Bar is one historical market data entry
type Bar struct {
	T int64   `json:"t"` // epoch milliseconds
	C float64 `json:"c"` // close
}

// Snapshot field codes
const (
	FieldLastPrice     = "31"
	FieldPERatio       = "7290"
	FieldDividendYield = "7287"
)

// snapshotFields is the field list requested from the snapshot endpoint
var snapshotFields = strings.Join([]string{FieldLastPrice, FieldPERatio, FieldDividendYield}, ",")

// APIError is returned when the gateway answers with a non-2xx status
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ibkr %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// parseSnapshot converts a raw snapshot row into a Snapshot
func parseSnapshot(raw map[string]interface{}) (Snapshot, bool) {
	conid, ok := raw["conid"].(float64)
	if !ok {
		return Snapshot{}, false
	}

	snap := Snapshot{Conid: ContractID(int64(conid))}
	if v, ok := parseNumber(raw[FieldLastPrice]); ok {
		snap.LastPrice = &v
	}
	if v, ok := parseNumber(raw[FieldPERatio]); ok {
		snap.PERatio = &v
	}
	if v, ok := parseNumber(raw[FieldDividendYield]); ok {
		v /= 100
		snap.DividendYield = &v
	}

	return snap, true
}

// parseNumber reads gateway field values such as "C189.50", "H12.1", "0.52%" or "1,234.5"
func parseNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimLeft(s, "CH") // C: 전일 종가, H: 거래정지
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
