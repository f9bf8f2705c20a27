package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradewatch/internal/models"
	"tradewatch/internal/repository"
)

// PrefsHandler exposes the local preference store. The store is
// best-effort by design: read failures degrade to empty payloads and the
// dashboard carries on.
type PrefsHandler struct {
	Repo        repository.Repository
	Logger      *zap.Logger
	SearchLimit int
}

func (h *PrefsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/preferences")
	g.GET("", h.list)
	g.PUT("/:key", h.put)
	g.GET("/:key", h.get)

	s := r.Group("/api/v1/recent-searches")
	s.GET("", h.recentSearches)
	s.POST("", h.addSearch)
	s.DELETE("", h.clearSearches)
}

func (h *PrefsHandler) list(c *gin.Context) {
	prefs, err := h.Repo.ListPreferences(c.Request.Context())
	if err != nil {
		h.warn("list preferences failed", err)
		Ok(c, []models.Preference{}, map[string]any{"degraded": true})
		return
	}
	Ok(c, prefs, nil)
}

func (h *PrefsHandler) get(c *gin.Context) {
	pref, err := h.Repo.GetPreference(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.warn("get preference failed", err)
		Ok(c, nil, map[string]any{"degraded": true})
		return
	}
	if pref == nil {
		Error(c, http.StatusNotFound, "preference not found", nil)
		return
	}
	Ok(c, pref, nil)
}

func (h *PrefsHandler) put(c *gin.Context) {
	var value json.RawMessage
	if err := c.ShouldBindJSON(&value); err != nil {
		Error(c, http.StatusBadRequest, "body must be valid JSON", nil)
		return
	}
	pref := &models.Preference{
		Key:       c.Param("key"),
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.Repo.UpsertPreference(c.Request.Context(), pref); err != nil {
		h.warn("save preference failed", err)
		Error(c, http.StatusInternalServerError, "preference not saved", nil)
		return
	}
	Ok(c, pref, nil)
}

func (h *PrefsHandler) recentSearches(c *gin.Context) {
	searches, err := h.Repo.RecentSearches(c.Request.Context(), h.SearchLimit)
	if err != nil {
		h.warn("list recent searches failed", err)
		Ok(c, []models.RecentSearch{}, map[string]any{"degraded": true})
		return
	}
	Ok(c, searches, nil)
}

func (h *PrefsHandler) addSearch(c *gin.Context) {
	var body struct {
		Term string `json:"term"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Term == "" {
		Error(c, http.StatusBadRequest, "term is required", nil)
		return
	}
	if err := h.Repo.AddRecentSearch(c.Request.Context(), body.Term, time.Now().UTC()); err != nil {
		// Losing a search term is not worth a visible failure.
		h.warn("record recent search failed", err)
	}
	Ok(c, nil, nil)
}

func (h *PrefsHandler) clearSearches(c *gin.Context) {
	if err := h.Repo.ClearRecentSearches(c.Request.Context()); err != nil {
		h.warn("clear recent searches failed", err)
		Error(c, http.StatusInternalServerError, "recent searches not cleared", nil)
		return
	}
	Ok(c, nil, nil)
}

func (h *PrefsHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}
