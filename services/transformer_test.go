package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opinion-etl/models"
)

func TestNumericGradeVocabulary(t *testing.T) {
	tests := []struct {
		verbal string
		want   int
	}{
		{"nieudany", 1},
		{"wystarczający", 2},
		{"w porządku", 3},
		{"dobry", 4},
		{"rewelacyjny", 5},
		{" Dobry ", 4},
	}

	seen := map[int]bool{}
	for _, tt := range tests {
		got, err := NumericGrade(tt.verbal)
		if err != nil || got != tt.want {
			t.Errorf("NumericGrade(%q) = %d, %v; want %d", tt.verbal, got, err, tt.want)
		}
		seen[got] = true
	}
	assert.Len(t, seen, 5, "each grade maps to a distinct value")
}

func TestNumericGradeUnknown(t *testing.T) {
	for _, verbal := range []string{"", "świetny", "5"} {
		_, err := NumericGrade(verbal)
		var ug *models.UnknownGradeError
		if !errors.As(err, &ug) {
			t.Errorf("NumericGrade(%q): expected UnknownGradeError, got %v", verbal, err)
		}
	}
}

func TestTransformPositionalAlignment(t *testing.T) {
	d := details("100", "200", "tv",
		rawOpinion("o1", "dobry", [2]string{"A,", "w porządku"}, [2]string{"B,", "rewelacyjny"}),
		rawOpinion("o2", "dobry", [2]string{"A,", "nieudany"}, [2]string{"B,", "wystarczający"}),
	)

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	attrs := tp.Rates.RatedAttributes
	require.Len(t, attrs, models.AttributeSlots)
	assert.Equal(t, "A", attrs[0].AttributeName)
	assert.Equal(t, 2.0, attrs[0].Rates.Average)
	assert.Equal(t, 1, attrs[0].Rates.Rated1)
	assert.Equal(t, 1, attrs[0].Rates.Rated3)
	assert.Equal(t, "B", attrs[1].AttributeName)
	assert.Equal(t, 3.5, attrs[1].Rates.Average)
	// slots 2..5 carry the overall grade
	assert.Equal(t, 4.0, attrs[2].Rates.Average)
	assert.Equal(t, 2, attrs[5].Rates.Rated4)
	assert.Equal(t, round2((2.0+3.5+4*4)/6), tp.Rates.OverallRate)
}

func TestTransformSynthesisesEmptyGrades(t *testing.T) {
	d := details("100", "200", "tv", rawOpinion("o1", "dobry"))

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	grades := tp.Opinions[0].Grades
	require.Len(t, grades, 6)
	for i, g := range grades {
		assert.Equal(t, 4, g.Grade, "slot %d", i)
	}
	assert.Equal(t, 4.0, tp.Rates.OverallRate)
}

func TestTransformRoundTripScenario(t *testing.T) {
	d := details("100", "200", "tv", rawOpinion("o1", "dobry"))

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	o := tp.Opinions[0]
	assert.Equal(t, 4, o.OverallNumericalGrade)
	assert.Equal(t, "dobry", o.OverallVerbalGrade)
	assert.Equal(t, 3, o.UsefulVotes)
	assert.Equal(t, 1, o.NotUsefulVotes)
	assert.Equal(t, 2, o.UsefulnessRate)
	assert.Equal(t, 4, o.TotalUsefulnessVotes)
	assert.Equal(t, models.OpinionDate{Day: 5, Month: 6, Year: 2020}, o.Date)
}

func TestTransformLabels(t *testing.T) {
	d := details("100", "200", "tv",
		rawOpinion("o1", "dobry"),
		rawOpinion("o2", "dobry", [2]string{"", "dobry"}, [2]string{"Obraz:,", "dobry"}),
		rawOpinion("o3", "dobry", [2]string{"Dźwięk,", "dobry"}),
	)

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	assert.Equal(t, "Dźwięk", tp.Rates.RatedAttributes[0].AttributeName)
	assert.Equal(t, "Obraz", tp.Rates.RatedAttributes[1].AttributeName)
	assert.Equal(t, "", tp.Rates.RatedAttributes[2].AttributeName)
	// synthesised grades borrow the slot labels
	assert.Equal(t, "Dźwięk", tp.Opinions[0].Grades[0].Attribute)
	assert.Equal(t, "Obraz:", tp.Opinions[0].Grades[1].Attribute)
}

func TestTransformKeepsExtraGradesOutOfAggregate(t *testing.T) {
	grades := make([][2]string, 7)
	for i := range grades {
		grades[i] = [2]string{"x,", "rewelacyjny"}
	}
	grades[6][1] = "nieudany"
	d := details("100", "200", "tv", rawOpinion("o1", "rewelacyjny", grades...))

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	assert.Len(t, tp.Opinions[0].Grades, 7)
	assert.Equal(t, 5.0, tp.Rates.OverallRate)
}

func TestTransformUnknownGradeFailsItem(t *testing.T) {
	d := details("100", "200", "tv",
		rawOpinion("o1", "dobry", [2]string{"A,", "genialny"}),
	)

	_, err := NewTransformer(newTestLogger()).Transform(d)

	var ug *models.UnknownGradeError
	require.True(t, errors.As(err, &ug))
	assert.Equal(t, "genialny", ug.Grade)
}

func TestTransformWithoutOpinions(t *testing.T) {
	tp, err := NewTransformer(newTestLogger()).Transform(details("100", "abc", "tv"))

	require.NoError(t, err)
	assert.Equal(t, int64(100), tp.ProductID)
	assert.Equal(t, int64(0), tp.ProductCode, "non-numeric code defaults to 0")
	assert.Equal(t, 0, tp.Rates.OpinionsAmount)
	assert.Equal(t, 0.0, tp.Rates.OverallRate)
	assert.Len(t, tp.Rates.RatedAttributes, 6)
	assert.NotNil(t, tp.Opinions)
}

func TestTransformDropsRepeatedOpinions(t *testing.T) {
	first := rawOpinion("o1", "dobry", [2]string{"Jakość", "dobry"})
	repeat := rawOpinion("o1", "nieudany")
	d := details("100", "200", "tv", first, repeat, rawOpinion("o2", "rewelacyjny"))

	tp, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	require.Len(t, tp.Opinions, 2)
	assert.Equal(t, "o1", tp.Opinions[0].OpinionID)
	assert.Equal(t, 4, tp.Opinions[0].OverallNumericalGrade, "first occurrence wins")
	assert.Equal(t, "o2", tp.Opinions[1].OpinionID)
	assert.Equal(t, 2, tp.Rates.OpinionsAmount)
	assert.Equal(t, 4.5, tp.Rates.OverallRate)
	assert.Len(t, d.Opinions, 3)
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	d := details("100", "200", "tv", rawOpinion("o1", "dobry", [2]string{"A,", "dobry"}))

	_, err := NewTransformer(newTestLogger()).Transform(d)

	require.NoError(t, err)
	assert.Equal(t, "A,", d.Opinions[0].Grades[0].Attribute)
	assert.Len(t, d.Opinions[0].Grades, 1)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want models.OpinionDate
	}{
		{"05-06-2020,", models.OpinionDate{Day: 5, Month: 6, Year: 2020}},
		{" 31-12-1999 ", models.OpinionDate{Day: 31, Month: 12, Year: 1999}},
		{"", models.OpinionDate{}},
		{"wczoraj", models.OpinionDate{}},
		{"01-xx-2021,", models.OpinionDate{Day: 1, Year: 2021}},
	}

	for _, tt := range tests {
		if got := parseDate(tt.raw); got != tt.want {
			t.Errorf("parseDate(%q) = %+v; want %+v", tt.raw, got, tt.want)
		}
	}
}
