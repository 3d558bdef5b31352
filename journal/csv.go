package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

var tradeHeader = []string{
	"trade_id", "trade_type", "pair", "direction", "lot_size",
	"entry_price", "exit_price", "stop_loss", "take_profit",
	"entry_time", "exit_time", "risk_amount", "risk_percent",
	"pnl_pips", "pnl_amount", "exit_reason", "status", "flags",
}

// WriteTradesCSV writes trades with a header row. Missing values are
// written as empty cells.
func WriteTradesCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		exitTime := ""
		if t.ExitTime != nil {
			exitTime = t.ExitTime.UTC().Format(time.RFC3339)
		}
		err := cw.Write([]string{
			t.ID,
			string(t.Type),
			t.Pair,
			string(t.Direction),
			f(t.LotSize),
			f(t.EntryPrice),
			fp(t.ExitPrice),
			f(t.StopLossPrice),
			fp(t.TakeProfitPrice),
			t.EntryTime.UTC().Format(time.RFC3339),
			exitTime,
			f(t.RiskAmount),
			f(t.RiskPercent),
			fp(t.PnLPips),
			fp(t.PnLAmount),
			string(t.ExitReason),
			string(t.Status),
			strings.Join(t.BehaviorFlags, ";"),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func fp(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}
