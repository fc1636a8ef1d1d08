package services

import (
	"math"
	"strconv"
	"strings"

	"opinion-etl/models"
)

// ComputeRates aggregates opinions from scratch: per slot, a histogram of the
// slot grades and their mean over all opinions, plus the mean of the slot means.
func ComputeRates(opinions []models.TransformedOpinion) models.Rates {
	n := len(opinions)
	attrs := make([]models.RatedAttribute, models.AttributeSlots)

	for i := range attrs {
		var rates models.AttributeRates
		sum := 0
		for _, o := range opinions {
			g := o.SlotGrade(i)
			rates.Add(g, 1)
			sum += g
		}
		if n > 0 {
			rates.Average = round2(float64(sum) / float64(n))
		}
		attrs[i] = models.RatedAttribute{
			AttributeName: strings.TrimRight(storedSlotLabel(opinions, i), ":"),
			Rates:         rates,
		}
	}

	return models.Rates{
		OpinionsAmount:  n,
		OverallRate:     overallRate(attrs),
		RatedAttributes: attrs,
	}
}

// RemoveOpinion updates rate incrementally for the removal of o, without
// access to the remaining opinions. Counts and averages never drop below zero and an
// empty product ends with an all-zero aggregate.
func RemoveOpinion(rate models.ProductRate, o models.TransformedOpinion) models.ProductRate {
	oldAmount := rate.OpinionsAmount
	newAmount := oldAmount - 1
	if newAmount < 0 {
		newAmount = 0
	}

	attrs := make([]models.RatedAttribute, len(rate.RatedAttributes))
	for i, attr := range rate.RatedAttributes {
		r := attr.Rates
		if newAmount == 0 {
			r = models.AttributeRates{}
		} else {
			g := o.SlotGrade(i)
			r.Add(g, -1)
			r.Average = round2((r.Average*float64(oldAmount) - float64(g)) / float64(newAmount))
			if r.Average < 0 {
				r.Average = 0
			}
		}
		attrs[i] = models.RatedAttribute{AttributeName: attr.AttributeName, Rates: r}
	}

	return models.ProductRate{
		ProductID: rate.ProductID,
		Rates: models.Rates{
			OpinionsAmount:  newAmount,
			OverallRate:     overallRate(attrs),
			RatedAttributes: attrs,
		},
	}
}

func storedSlotLabel(opinions []models.TransformedOpinion, i int) string {
	for _, o := range opinions {
		if i < len(o.Grades) && o.Grades[i].Attribute != "" {
			return o.Grades[i].Attribute
		}
	}
	return ""
}

func overallRate(attrs []models.RatedAttribute) float64 {
	if len(attrs) == 0 {
		return 0
	}
	var sum float64
	for _, a := range attrs {
		sum += a.Rates.Average
	}
	return round2(sum / float64(len(attrs)))
}

// round2 rounds half away from zero to two decimals. The decimal point is
// shifted in the shortest decimal representation, so 1.005 becomes 1.01
// rather than the 1.00 that f*100 would give.
func round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	shifted, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', -1, 64)+"e2", 64)
	if err != nil {
		return math.Round(f*100) / 100
	}
	back, err := strconv.ParseFloat(strconv.FormatFloat(math.Round(shifted), 'g', -1, 64)+"e-2", 64)
	if err != nil {
		return math.Round(f*100) / 100
	}
	return back
}
