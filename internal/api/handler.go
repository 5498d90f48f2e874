package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipefinder/internal/recipe"
	"recipefinder/internal/search"
)

// Searcher runs top-k recipe queries.
type Searcher interface {
	QueryTopK(ctx context.Context, q search.Query) ([]search.Result, error)
}

// RecipeStore defines the recipe data operations used by the handlers.
type RecipeStore interface {
	LoadRecipes(ctx context.Context, urls []string) (map[string]*recipe.Recipe, error)
	Sources(ctx context.Context) ([]string, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Searcher    Searcher
	RecipeStore RecipeStore
	Timeout     time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new Handler. Every request gets timeout to finish.
func NewHandler(searcher Searcher, recipeStore RecipeStore, timeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Searcher:    searcher,
		RecipeStore: recipeStore,
		Timeout:     timeout,
		logger:      logger.Named("api"),
	}
}

// Search handles top-k recipe queries. The body is a JSON search.Query.
func (h *Handler) Search(c *gin.Context) {
	var q search.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	results, err := h.Searcher.QueryTopK(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidQuery),
			errors.Is(err, recipe.ErrUnknownTagCategory),
			errors.Is(err, recipe.ErrInvalidTagFilterMode):
			c.String(http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			c.String(http.StatusRequestTimeout, fmt.Sprintf("Search timed out after %s", h.Timeout))
		default:
			h.logger.Error("search failed", zap.Error(err))
			c.String(http.StatusInternalServerError, fmt.Sprintf("search error: %s", err.Error()))
		}
		return
	}

	h.logger.Debug("search complete",
		zap.Int("user_ingredients", len(q.UserIngredients)),
		zap.Int("results", len(results)),
	)
	c.JSON(http.StatusOK, results)
}

// GetSources handles requests for the distinct source domains.
func (h *Handler) GetSources(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	sources, err := h.RecipeStore.Sources(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, fmt.Sprintf("Database query timed out after %s", h.Timeout))
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// GetTags handles requests for the known tag titles, optionally of one category.
func (h *Handler) GetTags(c *gin.Context) {
	category := recipe.TagCategory(c.Query("category"))
	if category == "" {
		c.JSON(http.StatusOK, recipe.KnownTags)
		return
	}
	if !category.Valid() {
		c.String(http.StatusBadRequest, fmt.Sprintf("unknown tag category %q", category))
		return
	}
	c.JSON(http.StatusOK, gin.H{string(category): recipe.KnownTags[category]})
}

// GetRecipe handles requests to retrieve a single hydrated recipe by URL.
func (h *Handler) GetRecipe(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.String(http.StatusBadRequest, "url query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	recipes, err := h.RecipeStore.LoadRecipes(ctx, []string{url})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.String(http.StatusRequestTimeout, fmt.Sprintf("Database query timed out after %s", h.Timeout))
			return
		}
		c.String(http.StatusInternalServerError, fmt.Sprintf("database error: %s", err.Error()))
		return
	}

	r, ok := recipes[url]
	if !ok || r == nil {
		c.String(http.StatusNotFound, "Recipe not found")
		return
	}

	c.JSON(http.StatusOK, r)
}

// Health reports that the server is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
