package euro

import (
	"fmt"
	"net/url"
)

// SearchPath is the path of a search result page. Page 0 is the landing page
// the pager is read from; pages 1..N are the numbered result pages.
func SearchPath(keyword string, page int) string {
	if page > 0 {
		return fmt.Sprintf("/search,strona-%d.bhtml?keyword=%s", page, url.QueryEscape(keyword))
	}
	return "/search.bhtml?keyword=" + url.QueryEscape(keyword)
}

// OpinionPath is the path of one page of a product's opinion listing.
func OpinionPath(productNameID string, page int) string {
	return fmt.Sprintf("/product-card-opinion.ltr?product-id=%s&page_nr=%d", url.QueryEscape(productNameID), page)
}
