package models

// RawGrade is one per-attribute grade exactly as scraped, still verbal.
type RawGrade struct {
	Attribute string `json:"attribute"`
	Grade     string `json:"grade"`
}

// Opinion is a review as scraped from an opinion page. Vote counts and the
// date are kept as the raw strings found in the document.
type Opinion struct {
	OpinionID         string     `json:"opinionId"`
	OpinionTitle      string     `json:"opinionTitle"`
	OverallRate       string     `json:"overallRate"`
	Grades            []RawGrade `json:"grades"`
	Date              string     `json:"date"`
	ReviewerName      string     `json:"reviewerName"`
	Content           string     `json:"content"`
	UsefulVotes       string     `json:"usefulVotes"`
	NotUsefulVotes    string     `json:"notUsefulVotes"`
	PurchaseConfirmed bool       `json:"purchaseConfirmed"`
}

type OpinionDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Grade is a numeric (1-5) grade for one attribute slot.
type Grade struct {
	Attribute string `json:"attribute"`
	Grade     int    `json:"grade"`
}

// TransformedOpinion is the canonical review stored in the opinions collection.
// Grades always holds at least AttributeSlots entries, aligned by slot.
type TransformedOpinion struct {
	ProductID             int64       `json:"productId,omitempty"`
	Content               string      `json:"content"`
	Date                  OpinionDate `json:"date"`
	Grades                []Grade     `json:"grades"`
	NotUsefulVotes        int         `json:"notUsefulVotes"`
	OpinionID             string      `json:"opinionId"`
	OpinionTitle          string      `json:"opinionTitle"`
	OverallNumericalGrade int         `json:"overallNumericalGrade"`
	OverallVerbalGrade    string      `json:"overallVerbalGrade"`
	PurchaseConfirmed     bool        `json:"purchaseConfirmed"`
	ReviewerName          string      `json:"reviewerName"`
	TotalUsefulnessVotes  int         `json:"totalUsefulnessVotes"`
	UsefulVotes           int         `json:"usefulVotes"`
	UsefulnessRate        int         `json:"usefulnessRate"`
}

// SlotGrade returns the grade recorded for slot i, falling back to the
// overall numeric grade when the opinion has no grade at that slot.
func (o TransformedOpinion) SlotGrade(i int) int {
	if i >= 0 && i < len(o.Grades) && o.Grades[i].Grade >= MinGrade && o.Grades[i].Grade <= MaxGrade {
		return o.Grades[i].Grade
	}
	return o.OverallNumericalGrade
}
