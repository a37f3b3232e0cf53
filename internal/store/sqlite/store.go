package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"statarb-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/pairs.db"
}

// Store is the engine's history database: downloaded candles, trades,
// rate snapshots and completed backtest trades. Opened in WAL mode with
// a single connection so concurrent readers never trip the writer.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, enables WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			PRIMARY KEY (symbol, timeframe, open_time)
		);

		CREATE TABLE IF NOT EXISTS trades (
			symbol         TEXT    NOT NULL,
			trade_id       INTEGER NOT NULL,
			price          REAL    NOT NULL,
			quantity       REAL    NOT NULL,
			ts             INTEGER NOT NULL,
			is_buyer_maker INTEGER NOT NULL,
			first_trade_id INTEGER NOT NULL,
			last_trade_id  INTEGER NOT NULL,
			PRIMARY KEY (symbol, trade_id)
		);
		CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades (symbol, ts);

		CREATE TABLE IF NOT EXISTS asset_prices (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			price  REAL    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS completed_trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			pair         TEXT    NOT NULL,
			direction    TEXT    NOT NULL,
			symbol_a     TEXT    NOT NULL,
			symbol_b     TEXT    NOT NULL,
			quantity_a   REAL    NOT NULL,
			quantity_b   REAL    NOT NULL,
			open_price_a REAL    NOT NULL,
			close_price_a REAL   NOT NULL,
			open_price_b REAL    NOT NULL,
			close_price_b REAL   NOT NULL,
			open_time    INTEGER NOT NULL,
			close_time   INTEGER NOT NULL,
			roi          REAL    NOT NULL,
			open_reason  TEXT    NOT NULL,
			close_reason TEXT    NOT NULL
		);
	`)
	return err
}

// InsertCandles upserts a batch of candles in a single transaction.
func (s *Store) InsertCandles(symbol, timeframe string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, timeframe, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// FetchCandles returns the most recent limit candles, ascending by open
// time. Satisfies model.DataProvider.
func (s *Store) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	return s.queryCandles(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume
		FROM (
			SELECT * FROM candles
			WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC
	`, symbol, timeframe, limit)
}

// CandlesBefore returns up to limit candles closed strictly before the
// given time, ascending by open time.
func (s *Store) CandlesBefore(ctx context.Context, symbol, timeframe string, limit int, before int64) ([]model.Candle, error) {
	return s.queryCandles(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume
		FROM (
			SELECT * FROM candles
			WHERE symbol = ? AND timeframe = ? AND close_time < ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC
	`, symbol, timeframe, before, limit)
}

func (s *Store) queryCandles(ctx context.Context, query string, args ...interface{}) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// InsertTrades upserts a batch of trades in a single transaction.
func (s *Store) InsertTrades(symbol string, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades (symbol, trade_id, price, quantity, ts, is_buyer_maker, first_trade_id, last_trade_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.Exec(symbol, t.TradeID, t.Price, t.Quantity, t.Timestamp, t.IsBuyerMaker, t.FirstTradeID, t.LastTradeID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// FetchTrades serves stored trades with the same pagination contract as
// the exchange: by trade-id continuation, or anchored to a time range
// on the first page. Satisfies model.TradeProvider.
func (s *Store) FetchTrades(ctx context.Context, symbol string, limit int, q model.TradeQuery) ([]model.Tick, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.FromID > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT trade_id, price, quantity, ts, is_buyer_maker, first_trade_id, last_trade_id
			FROM trades
			WHERE symbol = ? AND trade_id >= ?
			ORDER BY trade_id ASC LIMIT ?
		`, symbol, q.FromID, limit)
	} else {
		end := q.EndTime
		if end == 0 {
			end = int64(1) << 62
		}
		rows, err = s.db.QueryContext(ctx, `
			SELECT trade_id, price, quantity, ts, is_buyer_maker, first_trade_id, last_trade_id
			FROM trades
			WHERE symbol = ? AND ts >= ? AND ts <= ?
			ORDER BY trade_id ASC LIMIT ?
		`, symbol, q.StartTime, end, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var ticks []model.Tick
	for rows.Next() {
		t := model.Tick{Symbol: symbol}
		if err := rows.Scan(&t.TradeID, &t.Price, &t.Quantity, &t.Timestamp, &t.IsBuyerMaker, &t.FirstTradeID, &t.LastTradeID); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// InsertAssetPrices stores one rate snapshot at the given time.
func (s *Store) InsertAssetPrices(ts int64, prices map[string]float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO asset_prices (symbol, ts, price) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for symbol, price := range prices {
		if _, err := stmt.Exec(symbol, ts, price); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// AssetPrices returns, per symbol, the latest stored price at or before
// the given time. Symbols with no snapshot that early fall back to
// their earliest stored price. Satisfies model.RateSource.
func (s *Store) AssetPrices(ctx context.Context, at int64) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price FROM asset_prices a
		WHERE ts = (
			SELECT COALESCE(
				(SELECT MAX(ts) FROM asset_prices WHERE symbol = a.symbol AND ts <= ?),
				(SELECT MIN(ts) FROM asset_prices WHERE symbol = a.symbol)
			)
		)
	`, at)
	if err != nil {
		return nil, fmt.Errorf("sqlite query asset prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("sqlite scan asset price: %w", err)
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}

// SaveCompletedTrades appends a pair's backtest ledger.
func (s *Store) SaveCompletedTrades(pair string, trades []model.CompleteTrade) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO completed_trades (pair, direction, symbol_a, symbol_b, quantity_a, quantity_b,
			open_price_a, close_price_a, open_price_b, close_price_b, open_time, close_time, roi, open_reason, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(pair, string(t.Direction), t.SymbolA, t.SymbolB, t.QuantityA, t.QuantityB,
			t.OpenPriceA, t.ClosePriceA, t.OpenPriceB, t.ClosePriceB, t.OpenTime, t.CloseTime, t.ROI, t.OpenReason, t.CloseReason)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
