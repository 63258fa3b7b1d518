package model

// MonthlyViewers is the number of watch events recorded in one calendar month.
type MonthlyViewers struct {
	Name    string `json:"name"`
	Viewers int    `json:"viewers"`
}

// MovieWatchCount pairs a movie title with how many watch events it has.
type MovieWatchCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard is the admin summary.
type Dashboard struct {
	TotalUsers    int               `json:"totalUsers"`
	TotalMovies   int               `json:"totalMovies"`
	ViewersData   []MonthlyViewers  `json:"viewersData"`
	PopularMovies []MovieWatchCount `json:"popularMovies"`
}
