package euro

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// lastPageNumber reads the pager of a listing. No pager, or one that does not
// end in a number, means a single page and yields 0.
func lastPageNumber(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find(".paging .paging-number").Last().Text())
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// fetchPages fetches pages 1..lastPage concurrently, at most limit at a
// time, and concatenates their items in page order.
func fetchPages[T any](ctx context.Context, limit, lastPage int, fetch func(ctx context.Context, page int) ([]T, error)) ([]T, error) {
	pages := make([][]T, lastPage)

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for page := 1; page <= lastPage; page++ {
		page := page
		g.Go(func() error {
			items, err := fetch(gctx, page)
			if err != nil {
				return err
			}
			pages[page-1] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	all := make([]T, 0, total)
	for _, p := range pages {
		all = append(all, p...)
	}
	return all, nil
}
