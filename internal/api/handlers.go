package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/predictedpress/backend/internal/models"
	"github.com/predictedpress/backend/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handlers holds the API handlers.
type Handlers struct {
	store *storage.Store
}

// NewHandlers creates new API handlers.
func NewHandlers(store *storage.Store) *Handlers {
	return &Handlers{store: store}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

func getOffset(r *http.Request) int {
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

// ============================================================================
// MARKET HANDLERS
// ============================================================================

// GetMarkets returns markets, filterable by category, sortable by volume or
// probability.
func (h *Handlers) GetMarkets(w http.ResponseWriter, r *http.Request) {
	filter := storage.MarketFilter{
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
		Limit:    getLimit(r, 20),
		Offset:   getOffset(r),
	}

	markets, err := h.store.ListMarkets(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch markets")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"markets": markets,
		"count":   len(markets),
	})
}

// GetMarketByID returns a single market.
func (h *Handlers) GetMarketByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	market, err := h.store.GetMarketByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Market not found")
		return
	}
	respondJSON(w, http.StatusOK, market)
}

// GetMarketHistory returns the price history for a market.
func (h *Handlers) GetMarketHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 && parsed <= 30 {
			days = parsed
		}
	}

	points, err := h.store.GetPricePoints(r.Context(), id, time.Duration(days)*24*time.Hour)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"market_id": id,
		"points":    points,
		"count":     len(points),
	})
}

// ============================================================================
// BOUNTY HANDLERS
// ============================================================================

// GetBounties returns bounties, filterable by status and category, sortable
// by reward, deadline, or recency. Status defaults to OPEN; "all" lists
// every status.
func (h *Handlers) GetBounties(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(models.BountyOpen)
	}

	filter := storage.BountyFilter{
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
		Limit:    getLimit(r, 20),
	}
	if status != "all" {
		filter.Status = models.BountyStatus(status)
	}

	bounties, err := h.store.ListBounties(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch bounties")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bounties": bounties,
		"count":    len(bounties),
	})
}

// GetBountyByID returns a single bounty.
func (h *Handlers) GetBountyByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid bounty id")
		return
	}

	bounty, err := h.store.GetBountyByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Bounty not found")
		return
	}
	respondJSON(w, http.StatusOK, bounty)
}

type claimRequest struct {
	BountyID string `json:"bounty_id"`
	AuthorID string `json:"author_id"`
}

// ClaimBounty transitions an OPEN bounty to CLAIMED for one author.
func (h *Handlers) ClaimBounty(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BountyID == "" || req.AuthorID == "" {
		respondError(w, http.StatusBadRequest, "bounty_id and author_id are required")
		return
	}

	id, err := primitive.ObjectIDFromHex(req.BountyID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid bounty id")
		return
	}

	bounty, err := h.store.ClaimBounty(r.Context(), id, req.AuthorID)
	if errors.Is(err, storage.ErrNotClaimable) {
		respondError(w, http.StatusBadRequest, "Bounty is no longer available")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to claim bounty")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"bounty": bounty})
}

// ============================================================================
// ARTICLE HANDLERS
// ============================================================================

// GetArticles returns a page of articles with the total match count.
func (h *Handlers) GetArticles(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(models.ArticlePublished)
	}

	filter := storage.ArticleFilter{
		Category: r.URL.Query().Get("category"),
		Status:   models.ArticleStatus(status),
		Limit:    getLimit(r, 20),
		Offset:   getOffset(r),
	}

	articles, total, err := h.store.ListArticles(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch articles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"articles": articles,
		"total":    total,
		"has_more": int64(filter.Offset+len(articles)) < total,
	})
}

// GetArticleBySlug returns a single article.
func (h *Handlers) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	article, err := h.store.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		respondError(w, http.StatusNotFound, "Article not found")
		return
	}
	respondJSON(w, http.StatusOK, article)
}

type createArticleRequest struct {
	Slug        string `json:"slug"`
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Category    string `json:"category"`
	MarketID    string `json:"market_id"`
	Status      string `json:"status"`
	AIGenerated bool   `json:"ai_generated"`
}

// CreateArticle saves a new article from the CMS.
func (h *Handlers) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Headline == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "headline and content are required")
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = models.SlugFromHeadline(req.Headline)
	}

	status := models.ArticleStatus(req.Status)
	if status == "" {
		status = models.ArticleDraftStatus
	}

	article := &models.Article{
		Slug:        slug,
		Headline:    req.Headline,
		Subheadline: req.Subheadline,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		Category:    req.Category,
		MarketID:    req.MarketID,
		Status:      status,
		AIGenerated: req.AIGenerated,
	}

	if req.MarketID != "" {
		if market, err := h.store.GetMarketByID(r.Context(), req.MarketID); err == nil {
			article.ProbabilityAtGeneration = market.Probability
		}
	}

	if err := h.store.CreateArticle(r.Context(), article); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create article")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"article": article})
}

// ============================================================================
// STATS HANDLERS
// ============================================================================

// GetStats returns general statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck returns service health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "predictedpress",
	})
}
