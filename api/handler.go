package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"opinion-etl/models"
	"opinion-etl/services"
	"opinion-etl/utils"
)

// errInternal replaces the detail of unexpected failures in responses.
var errInternal = errors.New("internal server error")

// Handler exposes the pipeline stages and the stored data over HTTP.
type Handler struct {
	pipeline *services.Pipeline
	curator  *services.Curator
	runOpts  services.RunOptions
	logger   *utils.Logger
}

// NewHandler creates a Handler. runOpts is applied to every POST /runs; its
// Limit is the default when the request names none.
func NewHandler(pipeline *services.Pipeline, curator *services.Curator, runOpts services.RunOptions, logger *utils.Logger) *Handler {
	return &Handler{pipeline: pipeline, curator: curator, runOpts: runOpts, logger: logger}
}

type searchRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

type runRequest struct {
	Keyword string `json:"keyword" binding:"required"`
	Limit   int    `json:"limit" binding:"gte=0"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "Not found"}})
}

// Search answers 200 with the hits or 500 with the error envelope.
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(badBodyStatus(err), models.SearchResult{Error: models.ErrorMessage(err)})
		return
	}

	res := h.pipeline.Search(c.Request.Context(), req.Keyword)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, res)
}

func (h *Handler) Extract(c *gin.Context) {
	var products []models.Product
	if !h.bind(c, &products) {
		return
	}
	c.JSON(http.StatusOK, h.pipeline.Extract(c.Request.Context(), products))
}

func (h *Handler) Transform(c *gin.Context) {
	var details []models.ProductDetails
	if !h.bind(c, &details) {
		return
	}
	c.JSON(http.StatusOK, h.pipeline.Transform(c.Request.Context(), details))
}

func (h *Handler) Load(c *gin.Context) {
	var products []models.TransformedProduct
	if !h.bind(c, &products) {
		return
	}
	c.JSON(http.StatusOK, h.pipeline.Load(c.Request.Context(), products))
}

// Run performs search, extract, transform and load for one keyword.
func (h *Handler) Run(c *gin.Context) {
	var req runRequest
	if !h.bind(c, &req) {
		return
	}

	opts := h.runOpts
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}

	summary, err := h.pipeline.Run(c.Request.Context(), req.Keyword, opts)
	if err != nil {
		h.logger.Error("[api] Run %q failed: %v", req.Keyword, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"succeed": false,
			"error":   models.ErrorMessage(err),
			"summary": summary,
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.curator.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) DeleteAll(c *gin.Context) {
	if err := h.curator.DeleteAll(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"succeed": true})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := productIDParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	deleted, err := h.curator.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.withProducts(c, gin.H{
		"success":               true,
		"deletedProductDetails": deleted.Product,
		"deletedOpinions":       deleted.Opinions,
	})
}

// RefreshProduct re-scrapes a stored product and reports the new opinions.
func (h *Handler) RefreshProduct(c *gin.Context) {
	id, err := productIDParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	out, err := h.curator.RefreshProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.withProducts(c, gin.H{
		"success":        true,
		"newOpinions":    out.NewOpinions,
		"updatedProduct": out.UpdatedProduct,
	})
}

func (h *Handler) ListOpinions(c *gin.Context) {
	opinions, err := h.curator.ListOpinions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, opinions)
}

func (h *Handler) DeleteAllOpinions(c *gin.Context) {
	if err := h.curator.DeleteAllOpinions(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"succeed": true})
}

func (h *Handler) DeleteOpinion(c *gin.Context) {
	if _, err := h.curator.DeleteOpinion(c.Request.Context(), c.Param("opinionId")); err != nil {
		h.fail(c, err)
		return
	}
	h.withProducts(c, gin.H{"succeed": true})
}

// withProducts answers with body plus the refreshed product listing.
func (h *Handler) withProducts(c *gin.Context, body gin.H) {
	products, err := h.curator.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	body["products"] = products
	c.JSON(http.StatusOK, body)
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(badBodyStatus(err), gin.H{"succeed": false, "error": models.ErrorMessage(err)})
		return false
	}
	return true
}

// fail maps err to 404 for missing targets and 500 otherwise.
func (h *Handler) fail(c *gin.Context, err error) {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"succeed": false, "error": nf.Error()})
		return
	}
	h.logger.Error("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"succeed": false, "error": models.ErrorMessage(errInternal)})
}

func badBodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func productIDParam(c *gin.Context) (int64, error) {
	raw := c.Param("productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.NotFoundError{Kind: "Product", ID: raw}
	}
	return id, nil
}
