package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opinion-etl/config"
	"opinion-etl/models"
	"opinion-etl/services"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// catalog is an in-memory source keyed by keyword and product link.
type catalog struct {
	hits      map[string][]models.Product
	pages     map[string]models.ProductDetails
	searchErr error
}

func (c *catalog) Search(_ context.Context, keyword string) ([]models.Product, error) {
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.hits[keyword], nil
}

func (c *catalog) Extract(_ context.Context, p models.Product) (models.ProductDetails, error) {
	d, ok := c.pages[p.LinkToProduct]
	if !ok {
		return models.ProductDetails{}, &models.FetchError{URL: p.LinkToProduct, StatusCode: http.StatusNotFound}
	}
	return d, nil
}

func opinion(id, overall string) models.Opinion {
	return models.Opinion{OpinionID: id, OverallRate: overall, Grades: []models.RawGrade{}, Date: "01-02-2021,", UsefulVotes: "1", NotUsefulVotes: "0"}
}

func newCatalog() *catalog {
	tv := models.ProductDetails{
		ProductID: "100", ProductCode: "200", ProductNameID: "tv", Title: "TV",
		Opinions: []models.Opinion{opinion("o1", "dobry"), opinion("o2", "nieudany")},
	}
	tv.OpinionsAmount = len(tv.Opinions)
	radio := models.ProductDetails{
		ProductID: "101", ProductCode: "201", ProductNameID: "radio", Title: "Radio",
		Opinions: []models.Opinion{opinion("o3", "rewelacyjny")},
	}
	radio.OpinionsAmount = len(radio.Opinions)

	return &catalog{
		hits: map[string][]models.Product{
			"rtv": {{LinkToProduct: "/tv.bhtml", Title: "TV"}, {LinkToProduct: "/radio.bhtml", Title: "Radio"}},
			"200": {{LinkToProduct: "/tv.bhtml", Title: "TV"}},
		},
		pages: map[string]models.ProductDetails{"/tv.bhtml": tv, "/radio.bhtml": radio},
	}
}

type testServer struct {
	router  *gin.Engine
	catalog *catalog
	repo    *storage.MemoryRepository
}

func setupTestRouter() *testServer {
	logger := utils.NewNopLogger()
	cfg := &config.Config{AppEnv: "test", AllowedOrigins: []string{"http://localhost:3000"}}

	repo := storage.NewMemoryRepository()
	locker := storage.NewLocalLocker()
	source := newCatalog()
	transformer := services.NewTransformer(logger)
	loader := services.NewLoader(repo, locker, logger)
	pipeline := services.NewPipeline(source, transformer, loader, services.NewRunRegistry(), 2, logger)
	curator := services.NewCurator(repo, locker, source, transformer, loader, logger)

	handler := NewHandler(pipeline, curator, services.RunOptions{}, logger)
	return &testServer{router: SetupRouter(cfg, handler, logger), catalog: source, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func findProduct(products []models.ProductOverview, id int64) *models.ProductOverview {
	for i := range products {
		if products[i].ProductID == id {
			return &products[i]
		}
	}
	return nil
}

func TestHealthCheckEndpoint(t *testing.T) {
	s := setupTestRouter()

	w := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestUnknownRoute(t *testing.T) {
	s := setupTestRouter()

	for _, path := range []string{"/nope", "/products/1/opinions"} {
		w := s.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d; want 404", path, w.Code)
		}
		assert.JSONEq(t, `{"error":{"message":"Not found"}}`, w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := setupTestRouter()

	w := s.do(t, http.MethodPost, "/search", map[string]string{"keyword": "rtv"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.SearchResult](t, w)
	assert.True(t, res.Success)
	assert.Len(t, res.Data, 2)

	w = s.do(t, http.MethodPost, "/search", map[string]string{"keyword": "nothing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":null`)

	w = s.do(t, http.MethodPost, "/search", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.catalog.searchErr = errors.New("blocked")
	w = s.do(t, http.MethodPost, "/search", map[string]string{"keyword": "rtv"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res = decode[models.SearchResult](t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "An error has occured: blocked", res.Error)
}

func TestStageEndpoints(t *testing.T) {
	s := setupTestRouter()

	w := s.do(t, http.MethodPost, "/extract", []models.Product{{LinkToProduct: "/tv.bhtml"}, {LinkToProduct: "/gone.bhtml"}})
	require.Equal(t, http.StatusOK, w.Code)
	extracted := decode[[]models.Result[models.ProductDetails]](t, w)
	require.Len(t, extracted, 2)
	assert.True(t, extracted[0].Succeed)
	assert.False(t, extracted[1].Succeed)
	assert.Nil(t, extracted[1].Data)

	w = s.do(t, http.MethodPost, "/transform", []models.ProductDetails{*extracted[0].Data})
	require.Equal(t, http.StatusOK, w.Code)
	transformed := decode[[]models.Result[models.TransformedProduct]](t, w)
	require.Len(t, transformed, 1)
	require.True(t, transformed[0].Succeed)
	assert.Equal(t, int64(100), transformed[0].Data.ProductID)
	assert.Equal(t, 2.5, transformed[0].Data.Rates.OverallRate)

	w = s.do(t, http.MethodPost, "/load", []models.TransformedProduct{*transformed[0].Data})
	require.Equal(t, http.StatusOK, w.Code)
	loaded := decode[[]models.Result[models.LoadOutcome]](t, w)
	require.Len(t, loaded, 1)
	assert.Equal(t, models.LoadOutcome{NewProduct: true, NewOpinions: 2}, *loaded[0].Data)

	rate, err := s.repo.FindRate(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, rate.OpinionsAmount)
}

func TestRunAndCurateEndpoints(t *testing.T) {
	s := setupTestRouter()

	w := s.do(t, http.MethodPost, "/runs", map[string]any{"keyword": "rtv"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[models.RunSummary](t, w)
	assert.Equal(t, 2, summary.Loaded)
	assert.Equal(t, 3, summary.NewOpinions)

	w = s.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProductOverview](t, w), 2)

	w = s.do(t, http.MethodDelete, "/opinions/o2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decode[struct {
		Succeed  bool                     `json:"succeed"`
		Products []models.ProductOverview `json:"products"`
	}](t, w)
	assert.True(t, deleted.Succeed)
	require.Len(t, deleted.Products, 2)
	tv := findProduct(deleted.Products, 100)
	require.NotNil(t, tv)
	require.NotNil(t, tv.Rates)
	assert.Equal(t, 1, tv.Rates.OpinionsAmount)
	assert.Equal(t, 4.0, tv.Rates.OverallRate)

	w = s.do(t, http.MethodDelete, "/opinions/o2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Opinion with Id: o2 was not found")

	// o2 is back on the product page
	w = s.do(t, http.MethodPatch, "/products/100", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode[map[string]json.RawMessage](t, w)
	assert.JSONEq(t, "1", string(refreshed["newOpinions"]))
	assert.Contains(t, refreshed, "updatedProduct")
	assert.Contains(t, refreshed, "products")

	w = s.do(t, http.MethodPatch, "/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/products/100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	removed := decode[map[string]json.RawMessage](t, w)
	assert.JSONEq(t, "2", string(removed["deletedOpinions"]))
	assert.JSONEq(t, "true", string(removed["success"]))

	w = s.do(t, http.MethodDelete, "/products/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/opinions", nil)
	assert.JSONEq(t, `{"succeed":true}`, w.Body.String())
	w = s.do(t, http.MethodGet, "/opinions", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/products", nil)
	assert.JSONEq(t, `{"succeed":true}`, w.Body.String())
	w = s.do(t, http.MethodGet, "/products", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRunRejectsBadBody(t *testing.T) {
	s := setupTestRouter()

	for _, body := range []string{`{}`, `{"keyword":"tv","limit":-1}`, `[`} {
		w := s.do(t, http.MethodPost, "/runs", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST /runs %s status = %d; want 400", body, w.Code)
		}
	}
}

func TestRunSearchFailure(t *testing.T) {
	s := setupTestRouter()
	s.catalog.searchErr = errors.New("blocked")

	w := s.do(t, http.MethodPost, "/runs", map[string]any{"keyword": "rtv", "limit": 1})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "An error has occured"))
}

func TestUnexpectedFailureHidesDetail(t *testing.T) {
	s := setupTestRouter()
	w := s.do(t, http.MethodPost, "/runs", map[string]any{"keyword": "rtv"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s.catalog.searchErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	w = s.do(t, http.MethodPatch, "/products/100", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	body := decode[map[string]any](t, w)
	assert.Equal(t, false, body["succeed"])
	assert.Equal(t, "An error has occured: internal server error", body["error"])
}
