package models

import "time"

// WatchlistRecord is the persisted set of coins tracked by one user. A user
// without a stored record has an empty one.
type WatchlistRecord struct {
	UserID    string    `json:"userId"`
	Coins     CoinSet   `json:"coins"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func EmptyWatchlist(userID string) WatchlistRecord {
	return WatchlistRecord{UserID: userID, Coins: NewCoinSet()}
}

// WatchlistViewRow joins a tracked coin with its latest snapshot.
type WatchlistViewRow struct {
	CoinID   string         `json:"coinId"`
	Snapshot MarketSnapshot `json:"snapshot"`
}

type WatchlistView struct {
	UserID    string             `json:"userId"`
	Rows      []WatchlistViewRow `json:"rows"`
	Stale     bool               `json:"stale"`
	Notice    string             `json:"notice,omitempty"`
	FetchedAt time.Time          `json:"fetchedAt"`
}
