package models

// RateReport holds statistics over the stored products and their aggregates.
type RateReport struct {
	TotalProducts      int
	TotalOpinions      int
	ConfirmedOpinions  int
	AverageOverallRate float64
	BestRated          []ProductOverview
	ProductsByCategory map[string]int
}
