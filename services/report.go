package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"opinion-etl/models"
	"opinion-etl/utils"
)

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(products []models.ProductOverview) *models.RateReport {
	report := &models.RateReport{
		ProductsByCategory: make(map[string]int),
	}

	if len(products) == 0 {
		return report
	}

	report.TotalProducts = len(products)

	var rated []models.ProductOverview
	var rateSum float64

	for _, p := range products {
		report.TotalOpinions += len(p.Opinions)
		for _, o := range p.Opinions {
			if o.PurchaseConfirmed {
				report.ConfirmedOpinions++
			}
		}
		if p.Category != "" {
			report.ProductsByCategory[p.Category]++
		}
		if p.Rates != nil && p.Rates.OpinionsAmount > 0 {
			rated = append(rated, p)
			rateSum += p.Rates.OverallRate
		}
	}

	if len(rated) > 0 {
		report.AverageOverallRate = round2(rateSum / float64(len(rated)))
	}

	// Top 5 by overall rate, more opinions first on ties
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].Rates.OverallRate != rated[j].Rates.OverallRate {
			return rated[i].Rates.OverallRate > rated[j].Rates.OverallRate
		}
		return rated[i].Rates.OpinionsAmount > rated[j].Rates.OpinionsAmount
	})
	if len(rated) > 5 {
		report.BestRated = rated[:5]
	} else {
		report.BestRated = rated
	}

	s.logger.Debug("[report] %d products, %d opinions, %d rated", report.TotalProducts, report.TotalOpinions, len(rated))
	return report
}

func (s *ReportService) Print(w io.Writer, summary *models.RunSummary, r *models.RateReport) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PRODUCT OPINIONS REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if summary != nil {
		fmt.Fprintf(w, "\033[1;33m  Run %s\033[0m\n", summary.RunID)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Keyword            : \033[1m%s\033[0m\n", summary.Keyword)
		fmt.Fprintf(w, "  Found / loaded     : \033[1m%d / %d\033[0m (failed %d)\n", summary.Found, summary.Loaded, summary.Failed)
		fmt.Fprintf(w, "  New products       : \033[1m%d\033[0m\n", summary.NewProducts)
		fmt.Fprintf(w, "  New opinions       : \033[1m%d\033[0m\n", summary.NewOpinions)
		fmt.Fprintf(w, "  Took               : %s\n", summary.Finished.Sub(summary.Started).Round(time.Millisecond))
		for _, e := range summary.Errors {
			fmt.Fprintf(w, "  \033[31m! %s\033[0m\n", truncate(e, 56))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Products stored    : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Fprintf(w, "  Opinions stored    : \033[1m%d\033[0m (%d confirmed purchases)\n", r.TotalOpinions, r.ConfirmedOpinions)
	if r.AverageOverallRate > 0 {
		fmt.Fprintf(w, "  Mean overall rate  : \033[1;32m%.2f\033[0m\n", r.AverageOverallRate)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top 5 Rated Products\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.BestRated) == 0 {
		fmt.Fprintf(w, "  No rated products\n")
	} else {
		for i, p := range r.BestRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m (%d)\n",
				i+1, truncate(p.Title, 38), p.Rates.OverallRate, p.Rates.OpinionsAmount)
			for _, a := range p.Rates.RatedAttributes {
				if a.AttributeName == "" {
					continue
				}
				fmt.Fprintf(w, "       %-30s %.2f\n", truncate(a.AttributeName, 28), a.Rates.Average)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Products by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ProductsByCategory) == 0 {
		fmt.Fprintf(w, "  No category data\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.ProductsByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", cc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(cc.cat, 28), bar, cc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
