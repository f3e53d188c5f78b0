package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The two closed-trade endpoints of the platform disagree on field names and
// casing, so every field is looked up through a list of aliases. Aliases are
// compared after lower-casing and dropping '_' and '-'.
var (
	ExternalIDFields = []string{"orderId", "ticket", "dealId", "deal", "positionId", "position", "id"}
	SymbolFields     = []string{"symbol", "instrument", "ticker"}
	SideFields       = []string{"side", "direction", "type", "cmd", "action"}
	LotsFields       = []string{"lots", "lot", "volumeLots", "size"}
	VolumeFields     = []string{"volume", "qty", "quantity", "amount"}
	OpenPriceFields  = []string{"openPrice", "priceOpen", "open_price", "entryPrice"}
	ClosePriceFields = []string{"closePrice", "priceClose", "close_price", "exitPrice"}
	ProfitFields     = []string{"profit", "realizedProfit", "pnl", "realizedPnl"}
	OpenTimeFields   = []string{"openTime", "timeOpen", "openedAt", "open_time"}
	CloseTimeFields  = []string{"closeTime", "timeClose", "closedAt", "close_time"}
	GroupFields      = []string{"group", "groupName", "accountGroup", "groupPath"}
)

var externalIDSentinels = map[string]struct{}{
	"":          {},
	"0":         {},
	"-1":        {},
	"null":      {},
	"nil":       {},
	"none":      {},
	"undefined": {},
}

// RawTrade is an upstream trade item exactly as decoded from JSON.
type RawTrade map[string]any

func normalizeFieldName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(name, "-", "")
}

func (t RawTrade) lookup(aliases []string) (any, bool) {
	if len(t) == 0 {
		return nil, false
	}
	index := make(map[string]any, len(t))
	for k, v := range t {
		nk := normalizeFieldName(k)
		if _, dup := index[nk]; !dup {
			index[nk] = v
		}
	}
	for _, alias := range aliases {
		if v, ok := index[normalizeFieldName(alias)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first alias present, rendered as a trimmed string.
func (t RawTrade) String(aliases []string) (string, bool) {
	v, ok := t.lookup(aliases)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// Decimal parses the first alias present. present is false when the field is
// missing or blank; err is set when the field exists but is not a number.
func (t RawTrade) Decimal(aliases []string) (d decimal.Decimal, present bool, err error) {
	v, ok := t.lookup(aliases)
	if !ok {
		return decimal.Zero, false, nil
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true, nil
	case int:
		return decimal.NewFromInt(int64(val)), true, nil
	case int64:
		return decimal.NewFromInt(val), true, nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, true, err
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return decimal.Zero, false, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, true, fmt.Errorf("field %v: %w", aliases[0], err)
		}
		return d, true, nil
	default:
		return decimal.Zero, true, fmt.Errorf("field %v: unsupported type %T", aliases[0], v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02",
}

// Time parses the first alias present. Zero values ("", 0, "0") count as
// absent since the platform reports open positions with an empty close time.
func (t RawTrade) Time(aliases []string) (*time.Time, bool, error) {
	v, ok := t.lookup(aliases)
	if !ok {
		return nil, false, nil
	}
	switch val := v.(type) {
	case float64:
		return epochTime(int64(val))
	case int64:
		return epochTime(val)
	case int:
		return epochTime(int64(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return epochTime(n)
		}
		f, err := val.Float64()
		if err != nil {
			return nil, true, fmt.Errorf("field %v: %w", aliases[0], err)
		}
		return epochTime(int64(f))
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "0" || strings.HasPrefix(s, "0001-01-01") || strings.HasPrefix(s, "1970-01-01T00:00:00") {
			return nil, false, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochTime(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return epochTime(int64(f))
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				ts = ts.UTC()
				return &ts, true, nil
			}
		}
		return nil, true, fmt.Errorf("field %v: unparsable time %q", aliases[0], s)
	default:
		return nil, true, fmt.Errorf("field %v: unsupported type %T", aliases[0], v)
	}
}

func epochTime(n int64) (*time.Time, bool, error) {
	if n <= 0 {
		return nil, false, nil
	}
	var ts time.Time
	if n > 1_000_000_000_000 {
		ts = time.UnixMilli(n).UTC()
	} else {
		ts = time.Unix(n, 0).UTC()
	}
	return &ts, true, nil
}

// ExternalID returns the trade's upstream identifier, or false when it is
// missing or one of the sentinel placeholders.
func (t RawTrade) ExternalID() (string, bool) {
	id, ok := t.String(ExternalIDFields)
	if !ok {
		return "", false
	}
	if _, sentinel := externalIDSentinels[strings.ToLower(id)]; sentinel {
		return "", false
	}
	return id, true
}

// Side maps the platform's direction encodings to buy/sell.
func (t RawTrade) Side() TradeSide {
	s, ok := t.String(SideFields)
	if !ok {
		return SideUnknown
	}
	switch strings.ToLower(s) {
	case "buy", "long", "b", "0", "deal_type_buy", "order_type_buy":
		return SideBuy
	case "sell", "short", "s", "1", "deal_type_sell", "order_type_sell":
		return SideSell
	}
	return SideUnknown
}
