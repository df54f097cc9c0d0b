package watchlists

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("watchlist not found")

type Watchlist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Tickers   []string  `json:"tickers"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, userID, name string) (Watchlist, error) {
	wl := Watchlist{UserID: userID, Name: name, Tickers: []string{}}
	err := s.pool.QueryRow(ctx,
		"insert into watchlists (user_id, name, created_at) values ($1, $2, $3) returning id, created_at",
		userID, name, time.Now().UTC(),
	).Scan(&wl.ID, &wl.CreatedAt)
	return wl, err
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Watchlist, error) {
	rows, err := s.pool.Query(ctx, `
		select w.id, w.user_id, w.name, w.created_at, coalesce(array_agg(t.ticker order by t.ticker) filter (where t.ticker is not null), '{}')
		from watchlists w
		left join watchlist_tickers t on t.watchlist_id = w.id
		where w.user_id = $1
		group by w.id
		order by w.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Watchlist{}
	for rows.Next() {
		var wl Watchlist
		if err := rows.Scan(&wl.ID, &wl.UserID, &wl.Name, &wl.CreatedAt, &wl.Tickers); err != nil {
			return nil, err
		}
		out = append(out, wl)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, userID, id string) (Watchlist, error) {
	var wl Watchlist
	err := s.pool.QueryRow(ctx, `
		select w.id, w.user_id, w.name, w.created_at, coalesce(array_agg(t.ticker order by t.ticker) filter (where t.ticker is not null), '{}')
		from watchlists w
		left join watchlist_tickers t on t.watchlist_id = w.id
		where w.id = $1 and w.user_id = $2
		group by w.id
	`, id, userID).Scan(&wl.ID, &wl.UserID, &wl.Name, &wl.CreatedAt, &wl.Tickers)
	if errors.Is(err, pgx.ErrNoRows) {
		return wl, ErrNotFound
	}
	return wl, err
}

func (s *Store) AddTicker(ctx context.Context, userID, id, ticker string) error {
	tag, err := s.pool.Exec(ctx, `
		insert into watchlist_tickers (watchlist_id, ticker)
		select id, $3 from watchlists where id = $1 and user_id = $2
		on conflict do nothing
	`, id, userID, ticker)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// either unknown list or the ticker is already present
		if _, getErr := s.Get(ctx, userID, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (s *Store) RemoveTicker(ctx context.Context, userID, id, ticker string) error {
	tag, err := s.pool.Exec(ctx, `
		delete from watchlist_tickers
		where ticker = $3 and watchlist_id in (select id from watchlists where id = $1 and user_id = $2)
	`, id, userID, ticker)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, "delete from watchlists where id = $1 and user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
