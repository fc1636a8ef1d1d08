package euro

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"opinion-etl/models"
	"opinion-etl/scraper"
)

var (
	// productNameIDRegexp captures the slug of a product page path, e.g. "samsung-galaxy-a52" in
	// "/telefony-komorkowe/samsung-galaxy-a52.bhtml".
	productNameIDRegexp = regexp.MustCompile(`/([\da-z-]+)\.`)
	digitsRegexp        = regexp.MustCompile(`\d+`)
)

func parseDocument(doc *scraper.Document) (*goquery.Document, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, &models.ParseError{Source: doc.URL, Field: "html document"}
	}
	return page, nil
}

// parseProductBoxes maps every div.product-box of a result page to a Product.
// With a non-empty fallbackPath, a box without a link takes that path and a
// box without a title takes the product header; otherwise such boxes are skipped.
func parseProductBoxes(page *goquery.Document, fallbackPath string) []models.Product {
	var products []models.Product

	page.Find("div.product-box").Each(func(_ int, box *goquery.Selection) {
		link := strings.TrimSpace(box.AttrOr("data-product-href", ""))
		title := cleanText(box.Find(".product-main h2.product-name a").Text())

		if fallbackPath != "" {
			if link == "" {
				link = fallbackPath
			}
			if title == "" {
				title = cleanText(page.Find("div.product-header h1").Text())
			}
		}
		if link == "" {
			return
		}
		products = append(products, models.Product{LinkToProduct: link, Title: title})
	})

	return products
}

// parseProductPage reads catalog fields of a product page. Opinions are
// fetched separately and left empty here.
func parseProductPage(page *goquery.Document, linkToProduct, source string) (models.ProductDetails, error) {
	details := models.ProductDetails{}

	m := productNameIDRegexp.FindStringSubmatch(linkToProduct)
	if len(m) < 2 {
		return details, &models.ParseError{Source: source, Field: "product name id in " + linkToProduct}
	}
	details.ProductNameID = m[1]

	productID, ok := page.Find("#product-top").Attr("data-product")
	if !ok || strings.TrimSpace(productID) == "" {
		return details, &models.ParseError{Source: source, Field: "#product-top[data-product]"}
	}
	details.ProductID = strings.TrimSpace(productID)

	product := page.Find("#product-top > div.product-main")
	header := product.Find("div.product-header")

	details.Attributes = []models.ProductAttribute{}
	product.Find("div.product-info .product-attributes .attributes-row").Each(func(_ int, row *goquery.Selection) {
		details.Attributes = append(details.Attributes, models.ProductAttribute{
			Name:  cleanText(row.Find(".attribute-name").Text()),
			Value: cleanText(row.Find(".attribute-value").Text()),
		})
	})

	details.Brand = header.Find(".product-brand").AttrOr("title", "")
	details.Category = header.Find(".product-category a").AttrOr("title", "")
	details.Photo = product.Find("div#product-photo a").AttrOr("href", "")
	details.ProductCode = digitsRegexp.FindString(ownText(header.Find(".product-code .selenium-product-code").First()))
	details.Title = cleanText(header.Find("h1").Text())

	return details, nil
}

// parseOpinions maps each opinion item of an opinion page.
func parseOpinions(page *goquery.Document, source string) ([]models.Opinion, error) {
	var (
		opinions []models.Opinion
		parseErr error
	)

	page.Find("#opinion-list .opinion-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		id, ok := item.Attr("id")
		if !ok || strings.TrimSpace(id) == "" {
			parseErr = &models.ParseError{Source: source, Field: "opinion id"}
			return false
		}

		grades := []models.RawGrade{}
		item.Find(".opinion-item-grades .grade-item").Each(func(_ int, g *goquery.Selection) {
			grades = append(grades, models.RawGrade{
				Attribute: cleanText(g.Find(".attribute").Text()),
				Grade:     strings.TrimSpace(g.Find(".stars-rating").AttrOr("title", "")),
			})
		})

		opinions = append(opinions, models.Opinion{
			OpinionID:         strings.TrimSpace(id),
			OpinionTitle:      cleanText(item.Find(".opinion-title").Text()),
			OverallRate:       strings.TrimSpace(item.Find(".js-opinion-stars").AttrOr("title", "")),
			Grades:            grades,
			Date:              strings.TrimSpace(item.Find(".opinion-date").Text()),
			ReviewerName:      cleanText(item.Find(".opinion-nick").Text()),
			Content:           strings.TrimSpace(item.Find(".opinion-content .opinion-text p").Text()),
			UsefulVotes:       firstNumber(item.Find(".opinion-helpful-yes-number").Text()),
			NotUsefulVotes:    firstNumber(item.Find(".opinion-helpful-no-number").Text()),
			PurchaseConfirmed: item.Find(".customer-confirmed").Length() > 0,
		})
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if opinions == nil {
		opinions = []models.Opinion{}
	}
	return opinions, nil
}

func firstNumber(s string) string {
	if n := digitsRegexp.FindString(s); n != "" {
		return n
	}
	return "0"
}

// ownText returns the text of the selection's direct text children only.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

// cleanText strips leading/trailing whitespace and collapses internal whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
