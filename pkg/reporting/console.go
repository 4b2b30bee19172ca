package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/OldHunter0/Trend-Autostop/internal/state"
)

// regimeLabel renders the persisted regime value.
func regimeLabel(r int) string {
	switch {
	case r > 0:
		return "bull"
	case r < 0:
		return "bear"
	default:
		return "neutral"
	}
}

// PrintPositions renders the managed-position snapshot as a console table.
func PrintPositions(records []state.PositionRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"ID", "Symbol", "Side", "TF", "Status", "Regime", "Bars", "Stop", "Computed", "Checked",
	})

	for _, r := range records {
		stop := "-"
		if r.CurrentStop != nil {
			stop = fmt.Sprintf("%.4f", *r.CurrentStop)
		}
		checked := "-"
		if !r.LastCheckedAt.IsZero() {
			checked = r.LastCheckedAt.Format("01-02 15:04")
		}
		t.AppendRow(table.Row{
			r.ID, r.Symbol, r.Side, r.Timeframe, r.Status,
			regimeLabel(r.LastRegime), r.BarsSinceOpen,
			stop, fmt.Sprintf("%.4f", r.CalculatedStop), checked,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Bars", Align: text.AlignRight},
		{Name: "Stop", Align: text.AlignRight},
		{Name: "Computed", Align: text.AlignRight},
	})

	t.Render()
}

// PrintOperations renders the most recent operation-log entries.
func PrintOperations(ops []state.OperationRecord, limit int) {
	if limit > 0 && len(ops) > limit {
		ops = ops[len(ops)-limit:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Symbol", "Action", "Message", "OK"})

	for _, op := range ops {
		ok := "✅"
		if !op.Success {
			ok = "❌"
		}
		t.AppendRow(table.Row{
			op.Time.Format("01-02 15:04:05"), op.Symbol, op.Action, op.Message, ok,
		})
	}

	t.Render()
}
