package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"MutationScanner/internal/domain"
	"MutationScanner/internal/ports"
	"MutationScanner/internal/usecase"
)

const defaultPendingLimit = 500

// BatchRunner starts a batch over explicit identifiers.
type BatchRunner interface {
	RunNamedBatch(ctx context.Context, name string, ids []string) (domain.BatchResult, error)
}

// ProteinCollector records the articles of a protein as pending.
type ProteinCollector interface {
	Collect(ctx context.Context, protein string) (usecase.CollectResult, error)
}

// Deps groups the use cases exposed over HTTP.
type Deps struct {
	Batches   BatchRunner
	Collector ProteinCollector
	Work      ports.WorkList
	Articles  ports.ArticleReader
	Logger    *slog.Logger
}

type handlers struct {
	Deps
	logger *slog.Logger
}

// BatchRequest starts a batch. Either IDs or Pending must be given.
type BatchRequest struct {
	Name    string   `json:"name"`
	IDs     []string `json:"ids"`
	Pending int      `json:"pending"`
	Force   bool     `json:"force"`
}

// CollectRequest names the protein to look up.
type CollectRequest struct {
	Protein string `json:"protein" binding:"required"`
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{Deps: deps, logger: logger.With("component", "httpapi")}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog)

	r.GET("/healthz", h.health)

	v1 := r.Group("/api/v1")
	v1.POST("/batches", h.startBatch)
	v1.POST("/collections", h.collect)
	v1.GET("/articles", h.listArticles)
	v1.GET("/articles/:pmid", h.getArticle)

	return r
}

func (h *handlers) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start).String(),
	)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) startBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	ids := domain.NormalizeIDs(req.IDs)
	if len(ids) == 0 && req.Pending > 0 {
		pending, err := usecase.PendingIDs(ctx, h.Work, req.Pending)
		if err != nil {
			h.internalError(c, "list pending", err)
			return
		}
		ids = pending
	}
	if len(ids) == 0 && req.Pending == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids or pending is required"})
		return
	}

	if !req.Force && len(ids) > 0 {
		filtered, err := usecase.ExcludeProcessed(ctx, h.Work, ids)
		if err != nil {
			h.internalError(c, "exclude processed", err)
			return
		}
		ids = filtered
	}

	result, err := h.Batches.RunNamedBatch(ctx, req.Name, ids)
	if errors.Is(err, domain.ErrBatchLocked) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "run batch", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handlers) collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Collector.Collect(c.Request.Context(), req.Protein)
	if errors.Is(err, domain.ErrFetchFailure) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "collect", err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handlers) listArticles(c *gin.Context) {
	filter := domain.ArticleFilter{
		Status:  domain.ArticleStatus(c.Query("status")),
		Protein: c.Query("protein"),
		Limit:   defaultPendingLimit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	ids, err := h.Work.ListArticleIDs(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "list articles", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"ids": ids, "count": len(ids)})
}

func (h *handlers) getArticle(c *gin.Context) {
	pmid := c.Param("pmid")
	if !domain.IsNumericID(pmid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pmid must be numeric"})
		return
	}

	article, err := h.Articles.GetArticle(c.Request.Context(), pmid)
	if errors.Is(err, domain.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "get article", err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *handlers) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
