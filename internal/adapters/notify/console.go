package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Console implementa ports.Publisher escribiendo a un terminal.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un publicador que escribe a stdout.
// Con table=true imprime además los books del ciclo en tabla.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un publicador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Publish imprime una línea compacta por ciclo.
func (c *Console) Publish(_ context.Context, st domain.DashboardState) error {
	fmt.Fprintln(c.out, compactLine(st))
	if c.table && st.Market != nil {
		c.printBooks(st.Market)
	}
	return nil
}

// compactLine resume el ciclo en una línea:
// [15:04:05] 0xabc… 142s | UP 0.52/0.54 DN 0.46/0.48 | UP 71% +0.210 | cap $98.00 eq $100.12 | open UP@0.540
func compactLine(st domain.DashboardState) string {
	ts := st.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", ts.Format("15:04:05"))

	if st.Market == nil {
		fmt.Fprintf(&sb, " %s | cap $%.2f eq $%.2f", st.Status, st.Portfolio.Capital, st.Portfolio.Equity)
		return sb.String()
	}

	m := st.Market
	fmt.Fprintf(&sb, " %s", domain.TruncateQuestion(m.Question, m.ConditionID, 28))
	if m.SecsLeft != nil {
		fmt.Fprintf(&sb, " %.0fs", *m.SecsLeft)
	}
	fmt.Fprintf(&sb, " | UP %.2f/%.2f DN %.2f/%.2f",
		m.Prices.Up.Bid, m.Prices.Up.Ask, m.Prices.Down.Bid, m.Prices.Down.Ask)
	if m.Degraded {
		sb.WriteString(" (1 book)")
	}

	if s := st.Signal; s != nil {
		fmt.Fprintf(&sb, " | %s %d%% %+.3f", s.Label, s.Confidence, s.Score)
		if s.Confirmed {
			sb.WriteString(" ✓")
		}
	}

	p := st.Portfolio
	fmt.Fprintf(&sb, " | cap $%.2f eq $%.2f", p.Capital, p.Equity)
	if t := p.OpenTrade; t != nil {
		fmt.Fprintf(&sb, " | open %s@%.3f", t.Direction, t.EntryPrice)
		if t.StopPrice > 0 {
			fmt.Fprintf(&sb, " sl %.3f", t.StopPrice)
		}
	}
	return sb.String()
}

// printBooks imprime los mejores niveles de ambos lados.
func (c *Console) printBooks(m *domain.MarketView) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Bid", "Bid size", "Ask", "Ask size", "OBI", "Spread%")

	appendSide := func(name string, bm domain.BookMetrics) {
		n := max(len(bm.TopBids), len(bm.TopAsks), 1)
		for i := 0; i < n; i++ {
			row := []string{"", "", "", "", "", "", ""}
			if i == 0 {
				row[0] = name
				row[5] = fmt.Sprintf("%+.3f", bm.OBI)
				row[6] = fmt.Sprintf("%.1f", bm.SpreadPct*100)
			}
			if i < len(bm.TopBids) {
				row[1] = fmt.Sprintf("%.3f", bm.TopBids[i].Price)
				row[2] = fmt.Sprintf("%.1f", bm.TopBids[i].Size)
			}
			if i < len(bm.TopAsks) {
				row[3] = fmt.Sprintf("%.3f", bm.TopAsks[i].Price)
				row[4] = fmt.Sprintf("%.1f", bm.TopAsks[i].Size)
			}
			appendRow(table, row)
		}
	}
	appendSide("UP", m.Up)
	if m.Down != nil {
		appendSide("DOWN", *m.Down)
	}
	table.Render()
}

// PrintReport imprime el resumen de la sesión: trades recientes y agregados.
func (c *Console) PrintReport(stats domain.PortfolioStats) {
	fmt.Fprintf(c.out, "\n=== UPDOWN REPORT | policy %s ===\n", stats.Policy)

	if len(stats.RecentTrades) == 0 && stats.OpenTrade == nil {
		fmt.Fprintln(c.out, "  No trades yet.")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Dir", "Entry", "Exit", "Bet", "Stages", "Reason", "Status", "PnL")
		if t := stats.OpenTrade; t != nil {
			appendRow(table, tradeRow(*t))
		}
		for _, t := range stats.RecentTrades {
			appendRow(table, tradeRow(t))
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "\n  Capital:    $%.2f (initial $%.2f, committed $%.2f)\n",
		stats.Capital, stats.InitialCapital, stats.Committed)
	fmt.Fprintf(c.out, "  Equity:     $%.2f  (%+.2f%%)\n", stats.Equity, stats.ReturnPct)
	fmt.Fprintf(c.out, "  Realized:   $%+.4f  Unrealized: $%+.4f\n", stats.RealizedPnL, stats.UnrealizedPnL)
	fmt.Fprintf(c.out, "  Trades:     %d  W:%d L:%d C:%d  win rate %.1f%%\n",
		stats.Trades, stats.Wins, stats.Losses, stats.Cancelled, stats.WinRate)
	if len(stats.ExitCounts) > 0 {
		fmt.Fprintf(c.out, "  Exits:      %s\n", formatExitCounts(stats.ExitCounts))
	}
	fmt.Fprintln(c.out)
}

func appendRow(table *tablewriter.Table, cells []string) {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	table.Append(row...)
}

func tradeRow(t domain.Trade) []string {
	exit := "-"
	if !t.IsOpen() && t.ExitReason != domain.ReasonCancelled {
		exit = fmt.Sprintf("%.3f", t.ExitPrice)
	}
	executed := 0
	for _, s := range t.Stages {
		if s.Executed {
			executed++
		}
	}
	reason := string(t.ExitReason)
	if reason == "" {
		reason = "-"
	}
	return []string{
		fmt.Sprintf("%d", t.ID),
		string(t.Direction),
		fmt.Sprintf("%.3f", t.EntryPrice),
		exit,
		fmt.Sprintf("$%.2f", t.BetSize),
		fmt.Sprintf("%d/%d", executed, len(t.Stages)),
		reason,
		string(t.Status),
		fmt.Sprintf("%+.4f", t.RealizedPnL),
	}
}

// formatExitCounts ordena por nombre para una salida estable.
func formatExitCounts(counts map[domain.ExitReason]int) string {
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", r, counts[domain.ExitReason(r)]))
	}
	return strings.Join(parts, " ")
}
