package models

// Product is a single search hit: the path of a product page and its title.
type Product struct {
	LinkToProduct string `json:"linkToProduct"`
	Title         string `json:"title"`
}

// ProductAttribute is one row of the product's technical data table.
type ProductAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductDetails holds everything scraped from a product page, including all
// of its opinion pages. It lives only for the duration of a pipeline run.
type ProductDetails struct {
	Attributes     []ProductAttribute `json:"attributes"`
	Brand          string             `json:"brand"`
	Category       string             `json:"category"`
	Opinions       []Opinion          `json:"opinions"`
	OpinionsAmount int                `json:"opinionsAmount"`
	Photo          string             `json:"photo"`
	ProductCode    string             `json:"productCode"`
	ProductID      string             `json:"productId"`
	ProductNameID  string             `json:"productNameId"`
	Title          string             `json:"title"`
}

// ProductRecord is the canonical catalog entry stored in the products collection.
type ProductRecord struct {
	Attributes    []ProductAttribute `json:"attributes"`
	Brand         string             `json:"brand"`
	Category      string             `json:"category"`
	Photo         string             `json:"photo"`
	ProductCode   int64              `json:"productCode"`
	ProductID     int64              `json:"productId"`
	ProductNameID string             `json:"productNameId"`
	Title         string             `json:"title"`
}

// TransformedProduct is a ProductRecord together with its normalised
// opinions and the rate aggregate computed over them.
type TransformedProduct struct {
	ProductRecord
	Opinions []TransformedOpinion `json:"opinions"`
	Rates    Rates                `json:"rates"`
}

// ProductOverview is a stored product joined with its opinions and rates.
type ProductOverview struct {
	ProductRecord
	Opinions []TransformedOpinion `json:"opinions"`
	Rates    *ProductRate         `json:"rates"`
}

// LoadOutcome reports what a single load call changed.
type LoadOutcome struct {
	NewProduct  bool `json:"newProduct"`
	NewOpinions int  `json:"newOpinions"`
}
