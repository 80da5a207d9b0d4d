package storage

// sqlite.go: ledger persistente del bot.
//
// Estrategia:
//   - `trades`: UNA fila por trade (UPSERT por id). Columnas para consultar
//     (estado, mercado, pnl) más el snapshot JSON completo, que incluye los stages.
//   - `portfolio_state`: siempre 1 fila (id = 1) con capital, baseline,
//     contador de trades y la serie de P&L acumulado en JSON.
//   - Estado ilegible → domain.ErrMalformedState; el bot arranca de cero.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por trade, reescrita en cada liquidación
CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY,
    session     TEXT     NOT NULL DEFAULT '',
    market_id   TEXT     NOT NULL DEFAULT '',
    question    TEXT     NOT NULL DEFAULT '',
    direction   TEXT     NOT NULL,
    status      TEXT     NOT NULL,
    exit_reason TEXT     NOT NULL DEFAULT '',
    entry_price REAL     NOT NULL DEFAULT 0,
    bet_size    REAL     NOT NULL DEFAULT 0,
    pnl         REAL     NOT NULL DEFAULT 0,
    entry_time  DATETIME NOT NULL,
    exit_time   DATETIME,
    data        TEXT     NOT NULL
);

-- Ledger del portfolio, fila única
CREATE TABLE IF NOT EXISTS portfolio_state (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    capital         REAL     NOT NULL,
    initial_capital REAL     NOT NULL,
    trade_counter   INTEGER  NOT NULL DEFAULT 0,
    pnl_history     TEXT     NOT NULL DEFAULT '[]',
    updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_entry  ON trades(entry_time DESC);
`

// SQLiteStorage implementa ports.StateStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveTrade hace upsert del trade por id.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: marshal %d: %w", t.ID, err)
	}

	var exitTime *time.Time
	if !t.ExitTime.IsZero() {
		et := t.ExitTime.UTC()
		exitTime = &et
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, session, market_id, question, direction, status, exit_reason,
			 entry_price, bet_size, pnl, entry_time, exit_time, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status      = excluded.status,
			exit_reason = excluded.exit_reason,
			pnl         = excluded.pnl,
			exit_time   = excluded.exit_time,
			data        = excluded.data
	`,
		t.ID,
		t.Session,
		t.MarketID,
		t.Question,
		string(t.Direction),
		string(t.Status),
		string(t.ExitReason),
		t.EntryPrice,
		t.BetSize,
		t.RealizedPnL,
		t.EntryTime.UTC(),
		exitTime,
		string(data),
	); err != nil {
		return fmt.Errorf("storage.SaveTrade: upsert %d: %w", t.ID, err)
	}
	return nil
}

// SavePortfolioState reescribe la fila única del ledger.
func (s *SQLiteStorage) SavePortfolioState(ctx context.Context, capital, initialCapital float64, pnlHistory []float64, tradeCounter int) error {
	if pnlHistory == nil {
		pnlHistory = []float64{}
	}
	hist, err := json.Marshal(pnlHistory)
	if err != nil {
		return fmt.Errorf("storage.SavePortfolioState: marshal history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_state (id, capital, initial_capital, trade_counter, pnl_history, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capital         = excluded.capital,
			initial_capital = excluded.initial_capital,
			trade_counter   = excluded.trade_counter,
			pnl_history     = excluded.pnl_history,
			updated_at      = excluded.updated_at
	`, capital, initialCapital, tradeCounter, string(hist), time.Now().UTC()); err != nil {
		return fmt.Errorf("storage.SavePortfolioState: upsert: %w", err)
	}
	return nil
}

// LoadState restaura el ledger completo: fila de estado, trades cerrados en
// orden de id y el trade abierto más reciente si lo hay.
func (s *SQLiteStorage) LoadState(ctx context.Context) (domain.PortfolioState, error) {
	var (
		st   domain.PortfolioState
		hist string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT capital, initial_capital, trade_counter, pnl_history FROM portfolio_state WHERE id = 1`,
	).Scan(&st.Capital, &st.InitialCapital, &st.TradeCounter, &hist)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PortfolioState{}, domain.ErrNoSavedState
	}
	if err != nil {
		return domain.PortfolioState{}, fmt.Errorf("storage.LoadState: query state: %w", err)
	}
	if err := json.Unmarshal([]byte(hist), &st.PnLHistory); err != nil {
		return domain.PortfolioState{}, fmt.Errorf("storage.LoadState: pnl history: %w: %v", domain.ErrMalformedState, err)
	}
	if !st.Valid() {
		return domain.PortfolioState{}, fmt.Errorf("storage.LoadState: capital=%v initial=%v counter=%d: %w",
			st.Capital, st.InitialCapital, st.TradeCounter, domain.ErrMalformedState)
	}

	trades, err := s.loadTrades(ctx)
	if err != nil {
		return domain.PortfolioState{}, err
	}
	for i := range trades {
		t := trades[i]
		if t.IsOpen() {
			st.OpenTrade = &t
			continue
		}
		st.ClosedTrades = append(st.ClosedTrades, t)
	}
	return st, nil
}

// loadTrades lee todos los trades en orden de id. Un snapshot ilegible
// invalida el estado entero.
func (s *SQLiteStorage) loadTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM trades ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadState: query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			id   int
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("storage.LoadState: scan trade: %w", err)
		}
		var t domain.Trade
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("storage.LoadState: trade %d: %w: %v", id, domain.ErrMalformedState, err)
		}
		t.ID = id
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
