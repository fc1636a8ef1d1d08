package models

const (
	// AttributeSlots is the fixed number of positional attribute buckets per product.
	AttributeSlots = 6

	MinGrade = 1
	MaxGrade = 5
)

// AttributeRates is the histogram and average of one attribute slot.
type AttributeRates struct {
	Average float64 `json:"average"`
	Rated1  int     `json:"rated1"`
	Rated2  int     `json:"rated2"`
	Rated3  int     `json:"rated3"`
	Rated4  int     `json:"rated4"`
	Rated5  int     `json:"rated5"`
}

// Count returns the number of opinions that gave grade g.
func (r AttributeRates) Count(g int) int {
	if p := r.bucket(g); p != nil {
		return *p
	}
	return 0
}

// Total is rated1 + ... + rated5.
func (r AttributeRates) Total() int {
	return r.Rated1 + r.Rated2 + r.Rated3 + r.Rated4 + r.Rated5
}

// Add adjusts the bucket for grade g by delta, never going below zero.
// Grades outside 1..5 are ignored.
func (r *AttributeRates) Add(g, delta int) {
	p := r.bucket(g)
	if p == nil {
		return
	}
	*p += delta
	if *p < 0 {
		*p = 0
	}
}

func (r *AttributeRates) bucket(g int) *int {
	switch g {
	case 1:
		return &r.Rated1
	case 2:
		return &r.Rated2
	case 3:
		return &r.Rated3
	case 4:
		return &r.Rated4
	case 5:
		return &r.Rated5
	}
	return nil
}

type RatedAttribute struct {
	AttributeName string         `json:"attributeName"`
	Rates         AttributeRates `json:"rates"`
}

// Rates is the aggregate computed over the full opinion set of a product.
type Rates struct {
	OpinionsAmount  int              `json:"opinionsAmount"`
	OverallRate     float64          `json:"overallRate"`
	RatedAttributes []RatedAttribute `json:"ratedAttributes"`
}

// ProductRate is the persisted aggregate snapshot, one per product.
type ProductRate struct {
	ProductID int64 `json:"productId"`
	Rates
}
