package services

import (
	"strconv"
	"strings"

	"opinion-etl/models"
	"opinion-etl/utils"
)

// verbalGrades maps the catalog's star labels to the 1-5 scale.
var verbalGrades = map[string]int{
	"nieudany":      1,
	"wystarczający": 2,
	"w porządku":    3,
	"dobry":         4,
	"rewelacyjny":   5,
}

// NumericGrade converts a verbal grade. Unknown labels are an error, never a default.
func NumericGrade(verbal string) (int, error) {
	g, ok := verbalGrades[strings.ToLower(strings.TrimSpace(verbal))]
	if !ok {
		return 0, &models.UnknownGradeError{Grade: verbal}
	}
	return g, nil
}

// Transformer converts scraped ProductDetails into canonical TransformedProducts.
type Transformer struct {
	logger *utils.Logger
}

// NewTransformer creates a Transformer with the given logger.
func NewTransformer(logger *utils.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform is deterministic and does not modify d.
func (t *Transformer) Transform(d models.ProductDetails) (models.TransformedProduct, error) {
	if d.OpinionsAmount != len(d.Opinions) {
		t.logger.Warn("[transformer] %s: opinionsAmount %d does not match %d scraped opinions, using the latter",
			d.ProductNameID, d.OpinionsAmount, len(d.Opinions))
	}

	unique := uniqueOpinions(d.Opinions)
	if dropped := len(d.Opinions) - len(unique); dropped > 0 {
		t.logger.Warn("[transformer] %s: dropped %d repeated opinions", d.ProductNameID, dropped)
	}

	labels := slotLabels(unique)
	opinions := make([]models.TransformedOpinion, 0, len(unique))
	for _, o := range unique {
		to, err := transformOpinion(o, labels)
		if err != nil {
			return models.TransformedProduct{}, err
		}
		opinions = append(opinions, to)
	}

	attributes := append([]models.ProductAttribute{}, d.Attributes...)

	tp := models.TransformedProduct{
		ProductRecord: models.ProductRecord{
			Attributes:    attributes,
			Brand:         d.Brand,
			Category:      d.Category,
			Photo:         d.Photo,
			ProductCode:   parseInt64(d.ProductCode),
			ProductID:     parseInt64(d.ProductID),
			ProductNameID: d.ProductNameID,
			Title:         d.Title,
		},
		Opinions: opinions,
		Rates:    ComputeRates(opinions),
	}

	t.logger.Debug("[transformer] %s: %d opinions, overall rate %.2f",
		tp.ProductNameID, len(opinions), tp.Rates.OverallRate)
	return tp, nil
}

// uniqueOpinions keeps the first opinion for each opinion id. Overlapping
// review pages can repeat one.
func uniqueOpinions(in []models.Opinion) []models.Opinion {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Opinion, 0, len(in))
	for _, o := range in {
		if _, dup := seen[o.OpinionID]; dup {
			continue
		}
		seen[o.OpinionID] = struct{}{}
		out = append(out, o)
	}
	return out
}

func transformOpinion(o models.Opinion, labels [models.AttributeSlots]string) (models.TransformedOpinion, error) {
	overall, err := NumericGrade(o.OverallRate)
	if err != nil {
		return models.TransformedOpinion{}, err
	}

	// slot i of every opinion denotes the same attribute; missing slots take the overall grade
	size := models.AttributeSlots
	if len(o.Grades) > size {
		size = len(o.Grades)
	}
	grades := make([]models.Grade, size)
	for i := range grades {
		if i < len(o.Grades) {
			g, err := NumericGrade(o.Grades[i].Grade)
			if err != nil {
				return models.TransformedOpinion{}, err
			}
			grades[i] = models.Grade{Attribute: gradeLabel(o.Grades[i].Attribute), Grade: g}
			continue
		}
		grades[i] = models.Grade{Attribute: labels[i], Grade: overall}
	}

	useful := parseInt(o.UsefulVotes)
	notUseful := parseInt(o.NotUsefulVotes)

	return models.TransformedOpinion{
		Content:               o.Content,
		Date:                  parseDate(o.Date),
		Grades:                grades,
		NotUsefulVotes:        notUseful,
		OpinionID:             o.OpinionID,
		OpinionTitle:          o.OpinionTitle,
		OverallNumericalGrade: overall,
		OverallVerbalGrade:    o.OverallRate,
		PurchaseConfirmed:     o.PurchaseConfirmed,
		ReviewerName:          o.ReviewerName,
		TotalUsefulnessVotes:  useful + notUseful,
		UsefulVotes:           useful,
		UsefulnessRate:        useful - notUseful,
	}, nil
}

// slotLabels takes, per slot, the label of the first opinion that has one there.
func slotLabels(opinions []models.Opinion) [models.AttributeSlots]string {
	var labels [models.AttributeSlots]string
	for i := range labels {
		for _, o := range opinions {
			if i < len(o.Grades) {
				if l := gradeLabel(o.Grades[i].Attribute); l != "" {
					labels[i] = l
					break
				}
			}
		}
	}
	return labels
}

func gradeLabel(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ","))
}

// parseDate reads "DD-MM-YYYY," into its parts. Unreadable parts are 0.
func parseDate(raw string) models.OpinionDate {
	parts := strings.Split(strings.TrimRight(strings.TrimSpace(raw), ","), "-")
	var nums [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		nums[i] = parseInt(parts[i])
	}
	return models.OpinionDate{Day: nums[0], Month: nums[1], Year: nums[2]}
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
