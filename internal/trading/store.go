package trading

import (
	"context"
	"errors"
	"time"

	"mt-stocktrade/internal/model"
	"mt-stocktrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres Repository. Dual writes run in a serializable
// transaction with the position row locked `for update`, so the atomicity
// contract holds even across processes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tradeColumns = "id, user_id, ticker, direction, status, qty, price, coalesce(position_id::text, ''), executed_at, created_at"

func scanTrade(row pgx.Row) (*model.Trade, error) {
	var t model.Trade
	var direction, status string
	err := row.Scan(&t.ID, &t.UserID, &t.Ticker, &direction, &status, &t.Qty, &t.Price, &t.PositionID, &t.ExecutedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Direction = types.TradeDirection(direction)
	t.Status = types.TradeStatus(status)
	return &t, nil
}

func (s *Store) LoadPosition(ctx context.Context, userID, ticker string) (*model.Position, error) {
	var p model.Position
	err := s.pool.QueryRow(ctx, "select id, user_id, ticker, total_qty, avg_price, realized_pnl, updated_at from positions where user_id = $1 and ticker = $2", userID, ticker).
		Scan(&p.ID, &p.UserID, &p.Ticker, &p.TotalQty, &p.AvgPrice, &p.RealizedPnL, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveTrade(ctx context.Context, trade *model.Trade) error {
	if trade.ID == "" {
		return s.pool.QueryRow(ctx,
			"insert into trades (user_id, ticker, direction, status, qty, price, created_at, updated_at) values ($1,$2,$3,$4,$5,$6,$7,$7) returning id",
			trade.UserID, trade.Ticker, string(trade.Direction), string(trade.Status), trade.Qty, trade.Price, trade.CreatedAt,
		).Scan(&trade.ID)
	}
	_, err := s.pool.Exec(ctx,
		"update trades set status = $1, executed_at = $2, updated_at = $3 where id = $4",
		string(trade.Status), trade.ExecutedAt, time.Now().UTC(), trade.ID,
	)
	return err
}

func (s *Store) SavePositionAndTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, "select status from trades where id = $1 for update", trade.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTradeNotFound
	}
	if err != nil {
		return err
	}
	if types.TradeStatus(current).Terminal() {
		return ErrInvalidStateTransition
	}

	err = tx.QueryRow(ctx, `
		insert into positions (user_id, ticker, total_qty, avg_price, realized_pnl, updated_at)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (user_id, ticker) do update set
			total_qty = excluded.total_qty,
			avg_price = excluded.avg_price,
			realized_pnl = excluded.realized_pnl,
			updated_at = excluded.updated_at
		returning id
	`, pos.UserID, pos.Ticker, pos.TotalQty, pos.AvgPrice, pos.RealizedPnL, pos.UpdatedAt).Scan(&pos.ID)
	if err != nil {
		return err
	}
	trade.PositionID = pos.ID

	_, err = tx.Exec(ctx,
		"update trades set status = $1, executed_at = $2, position_id = $3, updated_at = $4 where id = $5",
		string(trade.Status), trade.ExecutedAt, pos.ID, time.Now().UTC(), trade.ID,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) TransitionTrade(ctx context.Context, tradeID string, from, to types.TradeStatus) (*model.Trade, error) {
	trade, err := scanTrade(s.pool.QueryRow(ctx,
		"update trades set status = $1, updated_at = $2 where id = $3 and status = $4 returning "+tradeColumns,
		string(to), time.Now().UTC(), tradeID, string(from),
	))
	if err == nil {
		return trade, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// no row updated: distinguish unknown id from a status mismatch
	var exists bool
	if checkErr := s.pool.QueryRow(ctx, "select exists(select 1 from trades where id = $1)", tradeID).Scan(&exists); checkErr != nil {
		return nil, checkErr
	}
	if !exists {
		return nil, ErrTradeNotFound
	}
	return nil, ErrInvalidStateTransition
}

func (s *Store) LoadTrade(ctx context.Context, tradeID string) (*model.Trade, error) {
	trade, err := scanTrade(s.pool.QueryRow(ctx, "select "+tradeColumns+" from trades where id = $1", tradeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTradeNotFound
	}
	return trade, err
}

func (s *Store) ListTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		select `+tradeColumns+` from trades
		where ($1 = '' or user_id::text = $1)
		  and ($2 = '' or ticker = $2)
		  and ($3 = '' or status = $3)
		  and ($4::timestamptz is null or executed_at >= $4)
		  and ($5::timestamptz is null or executed_at <= $5)
		order by created_at desc
		limit 500
	`, f.UserID, f.Ticker, string(f.Status), f.From, f.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, "select id, user_id, ticker, total_qty, avg_price, realized_pnl, updated_at from positions where user_id = $1 order by ticker", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.UserID, &p.Ticker, &p.TotalQty, &p.AvgPrice, &p.RealizedPnL, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		"select "+tradeColumns+" from trades where status = 'pending' and created_at < $1 order by created_at asc limit $2",
		before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
