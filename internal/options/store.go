package options

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"mt-stocktrade/internal/types"
)

var ErrNotFound = errors.New("option detail not found")

// Detail carries the option-specific fields of a trade. A plain share
// trade has no Detail row.
type Detail struct {
	TradeID      string               `json:"trade_id"`
	ContractType types.ContractType   `json:"contract_type"`
	StrikePrice  decimal.Decimal      `json:"strike_price"`
	Expiry       time.Time            `json:"expiry"`
	Strategy     types.OptionStrategy `json:"strategy,omitempty"`
	Premium      decimal.Decimal      `json:"premium"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Save(ctx context.Context, d Detail) error {
	_, err := s.pool.Exec(ctx, `
		insert into option_details (trade_id, contract_type, strike_price, expiry, strategy, premium)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (trade_id) do update set
			contract_type = excluded.contract_type,
			strike_price = excluded.strike_price,
			expiry = excluded.expiry,
			strategy = excluded.strategy,
			premium = excluded.premium
	`, d.TradeID, d.ContractType, d.StrikePrice, d.Expiry, d.Strategy, d.Premium)
	return err
}

func (s *Store) GetByTrade(ctx context.Context, tradeID string) (Detail, error) {
	var d Detail
	err := s.pool.QueryRow(ctx, `
		select trade_id, contract_type, strike_price, expiry, strategy, premium
		from option_details where trade_id = $1
	`, tradeID).Scan(&d.TradeID, &d.ContractType, &d.StrikePrice, &d.Expiry, &d.Strategy, &d.Premium)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

// ListExpiring returns details whose expiry falls on or before the cutoff,
// joined with the owning user for notification purposes.
func (s *Store) ListExpiring(ctx context.Context, cutoff time.Time, limit int) ([]Detail, error) {
	rows, err := s.pool.Query(ctx, `
		select trade_id, contract_type, strike_price, expiry, strategy, premium
		from option_details
		where expiry <= $1
		order by expiry
		limit $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Detail{}
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.TradeID, &d.ContractType, &d.StrikePrice, &d.Expiry, &d.Strategy, &d.Premium); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
