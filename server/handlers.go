package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/opsboard/engine"
	"github.com/spektr-org/opsboard/helpers"
	"github.com/spektr-org/opsboard/session"
)

const (
	defaultRowLimit = 50
	maxRowLimit     = 500

	sessionKey = "session"
)

// ============================================================================
// ERRORS
// ============================================================================

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, helpers.ErrInvalidWorkbook),
		errors.Is(err, engine.ErrInvalidSelection),
		errors.Is(err, engine.ErrInvalidRange),
		errors.Is(err, engine.ErrColumnNotFound),
		errors.Is(err, engine.ErrUnknownStatus),
		errors.Is(err, engine.ErrDerivedColumn),
		errors.Is(err, session.ErrInvalidName):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("⚠️ Opsboard: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// ============================================================================
// SESSIONS
// ============================================================================

func (s *Server) loadSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (s *Server) createSession(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.UploadLimit())

	fh, err := c.FormFile("file")
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		fail(c, err)
		return
	}
	wb, err := helpers.LoadBytes(data, fh.Filename)
	if err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		fail(c, err)
		return
	}
	sess, err := s.sessions.Create(wb)
	if err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		fail(c, err)
		return
	}
	uploadsTotal.WithLabelValues("ok").Inc()
	sessionsActive.Set(float64(s.sessions.Len()))

	c.JSON(http.StatusCreated, sess.Info())
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Info())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(current(c).ID()); err != nil {
		fail(c, err)
		return
	}
	sessionsActive.Set(float64(s.sessions.Len()))
	c.Status(http.StatusNoContent)
}

func (s *Server) selectSheet(c *gin.Context) {
	var req struct {
		Sheet string `json:"sheet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess := current(c)
	if err := sess.SelectSheet(req.Sheet); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

// ============================================================================
// FILTERS & SNAPSHOT
// ============================================================================

func (s *Server) updateFilters(c *gin.Context) {
	var req session.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := current(c).UpdateFilters(req); err != nil {
		fail(c, err)
		return
	}
	s.writeSnapshot(c)
}

func (s *Server) getSnapshot(c *gin.Context) {
	s.writeSnapshot(c)
}

// writeSnapshot serves the session snapshot, through the cache when one is
// configured. Cache failures only cost a recomputation.
func (s *Server) writeSnapshot(c *gin.Context) {
	sess := current(c)
	ctx := c.Request.Context()

	key, err := sess.CacheKey("snapshot")
	if err != nil {
		log.Printf("⚠️ Opsboard: snapshot cache key: %v", err)
		key = ""
	}
	if key != "" && s.cache.Available() {
		var raw json.RawMessage
		hit, err := s.cache.Get(ctx, key, &raw)
		switch {
		case err != nil:
			snapshotCache.WithLabelValues("error").Inc()
			log.Printf("⚠️ Opsboard: snapshot cache get: %v", err)
		case hit:
			snapshotCache.WithLabelValues("hit").Inc()
			c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
			return
		default:
			snapshotCache.WithLabelValues("miss").Inc()
		}
	}

	snap, err := sess.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		fail(c, err)
		return
	}
	if key != "" {
		if err := s.cache.Set(ctx, key, json.RawMessage(raw)); err != nil {
			log.Printf("⚠️ Opsboard: snapshot cache set: %v", err)
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) getRows(c *gin.Context) {
	offset, limit := 0, defaultRowLimit
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}
	c.JSON(http.StatusOK, current(c).Rows(offset, limit))
}

// ============================================================================
// DERIVED COLUMNS & ALERTS
// ============================================================================

func (s *Server) addDerived(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		Expression string `json:"expression" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess := current(c)
	if err := sess.Derive(req.Name, req.Expression); err != nil {
		derivedColumns.WithLabelValues("rejected").Inc()
		fail(c, err)
		return
	}
	derivedColumns.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, sess.Info())
}

// alertOptions reads ?threshold= and repeated ?status= over the profile
// defaults. Blank statuses are dropped, so a bare ?status= asks for no
// status at all.
func (s *Server) alertOptions(c *gin.Context) (engine.AlertOptions, error) {
	opts := s.cfg.Dashboard.Alert
	if v := c.Query("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: threshold %q", engine.ErrInvalidRange, v)
		}
		opts.Threshold = t
	}
	if values, ok := c.GetQueryArray("status"); ok {
		statuses := []string{}
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				statuses = append(statuses, v)
			}
		}
		opts.Statuses = statuses
	}
	return opts, nil
}

func (s *Server) getAlerts(c *gin.Context) {
	opts, err := s.alertOptions(c)
	if err != nil {
		fail(c, err)
		return
	}
	result, err := current(c).Alerts(opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ============================================================================
// FAVORITES
// ============================================================================

func (s *Server) listFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"favorites": current(c).Favorites()})
}

func (s *Server) saveFavorite(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	fav, err := current(c).SaveFavorite(req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

func (s *Server) applyFavorite(c *gin.Context) {
	if _, err := current(c).ApplyFavorite(c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	s.writeSnapshot(c)
}

func (s *Server) deleteFavorite(c *gin.Context) {
	if err := current(c).DeleteFavorite(c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
