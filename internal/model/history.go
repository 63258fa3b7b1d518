package model

import "time"

// WatchEvent records that a user watched a movie. There is at most one per
// (user, movie) pair; watching again only moves WatchedAt forward.
type WatchEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MovieID   string    `json:"movieId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// HistoryEntry is a watch event joined with the movie it refers to.
type HistoryEntry struct {
	WatchEvent
	Movie Movie `json:"movie"`
}
