package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opinion-etl/models"
)

func sampleProduct(id int64) models.ProductRecord {
	return models.ProductRecord{
		ProductID:     id,
		ProductCode:   id * 10,
		ProductNameID: "product-" + string(rune('a'+id%26)),
		Title:         "Product",
		Brand:         "Brand",
		Category:      "Category",
		Attributes:    []models.ProductAttribute{{Name: "Ekran", Value: "6.5"}},
	}
}

func sampleOpinion(id string, productID int64, grade int) models.TransformedOpinion {
	grades := make([]models.Grade, models.AttributeSlots)
	for i := range grades {
		grades[i] = models.Grade{Attribute: "slot", Grade: grade}
	}
	return models.TransformedOpinion{
		OpinionID:             id,
		ProductID:             productID,
		Content:               "ok",
		Date:                  models.OpinionDate{Day: 5, Month: 6, Year: 2020},
		Grades:                grades,
		OverallNumericalGrade: grade,
		OverallVerbalGrade:    "dobry",
	}
}

// runRepositoryContract exercises behavior every Repository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("product insert is conditional", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.InsertProduct(ctx, sampleProduct(1))
		require.NoError(t, err)
		assert.True(t, created)

		again := sampleProduct(1)
		again.Title = "changed"
		created, err = repo.InsertProduct(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := repo.FindProduct(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Product", got.Title)
		assert.Equal(t, []models.ProductAttribute{{Name: "Ekran", Value: "6.5"}}, got.Attributes)
	})

	t.Run("missing lookups are not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindProduct(ctx, 404)
		assert.True(t, models.IsNotFound(err))
		_, err = repo.FindOpinion(ctx, "nope")
		assert.True(t, models.IsNotFound(err))
		_, err = repo.FindRate(ctx, 404)
		assert.True(t, models.IsNotFound(err))
		_, err = repo.DeleteOpinion(ctx, "nope")
		assert.True(t, models.IsNotFound(err))
		_, err = repo.DeleteProduct(ctx, 404)
		assert.True(t, models.IsNotFound(err))
		assert.True(t, models.IsNotFound(repo.UpdateRate(ctx, models.ProductRate{ProductID: 404})))
	})

	t.Run("update product", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.InsertProduct(ctx, sampleProduct(2))
		require.NoError(t, err)

		p := sampleProduct(2)
		p.Title = "Refreshed"
		require.NoError(t, repo.UpdateProduct(ctx, p))

		got, err := repo.FindProduct(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Refreshed", got.Title)
	})

	t.Run("opinions keep insertion order and are scoped by product", func(t *testing.T) {
		repo := newRepo(t)
		for _, o := range []models.TransformedOpinion{
			sampleOpinion("b", 1, 4),
			sampleOpinion("a", 2, 3),
			sampleOpinion("c", 1, 5),
		} {
			created, err := repo.InsertOpinion(ctx, o)
			require.NoError(t, err)
			assert.True(t, created)
		}
		created, err := repo.InsertOpinion(ctx, sampleOpinion("b", 1, 1))
		require.NoError(t, err)
		assert.False(t, created)

		all, err := repo.ListOpinions(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"b", "a", "c"}, []string{all[0].OpinionID, all[1].OpinionID, all[2].OpinionID})
		assert.Equal(t, 4, all[0].Grades[5].Grade)

		ofOne, err := repo.ListOpinionsByProduct(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, ofOne, 2)

		n, err := repo.DeleteOpinionsByProduct(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := repo.ListOpinions(ctx)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "a", left[0].OpinionID)
	})

	t.Run("delete opinion returns the removed record", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.InsertOpinion(ctx, sampleOpinion("x", 7, 2))
		require.NoError(t, err)

		removed, err := repo.DeleteOpinion(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(7), removed.ProductID)
		assert.Equal(t, 2, removed.OverallNumericalGrade)

		_, err = repo.FindOpinion(ctx, "x")
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("rates are inserted once and updated in place", func(t *testing.T) {
		repo := newRepo(t)
		rate := models.ProductRate{ProductID: 3, Rates: models.Rates{
			OpinionsAmount: 2,
			OverallRate:    4.5,
			RatedAttributes: []models.RatedAttribute{
				{AttributeName: "Jakość", Rates: models.AttributeRates{Average: 4.5, Rated4: 1, Rated5: 1}},
			},
		}}

		created, err := repo.InsertRate(ctx, rate)
		require.NoError(t, err)
		assert.True(t, created)
		created, err = repo.InsertRate(ctx, rate)
		require.NoError(t, err)
		assert.False(t, created)

		rate.OpinionsAmount = 1
		rate.OverallRate = 4
		require.NoError(t, repo.UpdateRate(ctx, rate))

		got, err := repo.FindRate(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, got.OpinionsAmount)
		assert.InDelta(t, 4.0, got.OverallRate, 0.001)
		assert.Equal(t, "Jakość", got.RatedAttributes[0].AttributeName)

		require.NoError(t, repo.DeleteRate(ctx, 3))
		_, err = repo.FindRate(ctx, 3)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("delete all of kind", func(t *testing.T) {
		repo := newRepo(t)
		_, _ = repo.InsertProduct(ctx, sampleProduct(1))
		_, _ = repo.InsertOpinion(ctx, sampleOpinion("o", 1, 3))
		_, _ = repo.InsertRate(ctx, models.ProductRate{ProductID: 1})

		require.NoError(t, repo.DeleteAllOpinions(ctx))
		require.NoError(t, repo.DeleteAllRates(ctx))

		products, err := repo.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)
		opinions, err := repo.ListOpinions(ctx)
		require.NoError(t, err)
		assert.Empty(t, opinions)

		require.NoError(t, repo.DeleteAllProducts(ctx))
		products, err = repo.ListProducts(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}
