package http

import (
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexza/filevault/internal/infrastructure/monitoring"
	"github.com/nexza/filevault/internal/vault"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	store   *vault.FileStore
	metrics *monitoring.Metrics
	version string
}

// NewHandlers creates a new handler set.
func NewHandlers(store *vault.FileStore, metrics *monitoring.Metrics, version string) *Handlers {
	return &Handlers{
		store:   store,
		metrics: metrics,
		version: version,
	}
}

// Root handles the liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "filevault",
		"version": h.version,
	})
}

// Health handles the detailed health check, exposing store occupancy and
// operation counters.
func (h *Handlers) Health(c *gin.Context) {
	snap := h.metrics.GetSnapshot()
	status := "healthy"
	if snap.TotalFileOps > 0 && float64(snap.FileOpErrors)/float64(snap.TotalFileOps) > 0.5 {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"base_dir":       h.store.Base(),
		"store":          h.store.MetricsSnapshot().Data,
		"uptime_seconds": h.metrics.UptimeSeconds(),
	})
}

// ReadFile reads a file. With ?raw=true the bytes are returned verbatim;
// otherwise the decoded text arrives in the JSON envelope. ?cache=false
// bypasses the content cache.
func (h *Handlers) ReadFile(c *gin.Context) {
	rel := pathParam(c)

	if boolQuery(c, "raw", false) {
		res := h.store.ReadBinary(c.Request.Context(), rel)
		if !res.Success {
			respondError(c, res)
			return
		}
		data, _ := res.Data["data"].([]byte)
		c.Data(http.StatusOK, "application/octet-stream", data)
		return
	}

	res := h.store.ReadText(c.Request.Context(), rel, boolQuery(c, "cache", true))
	respond(c, res)
}

type writeRequest struct {
	Content string `json:"content"`
	Append  bool   `json:"append"`
	Backup  *bool  `json:"backup"` // pointer so an explicit false wins over the query default
}

// WriteFile writes a file. A JSON body carries text content; any other
// content type is stored verbatim as binary.
func (h *Handlers) WriteFile(c *gin.Context) {
	rel := pathParam(c)

	if strings.Contains(c.ContentType(), "application/json") {
		var req writeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
			return
		}
		backup := boolQuery(c, "backup", true)
		if req.Backup != nil {
			backup = *req.Backup
		}
		res := h.store.WriteText(c.Request.Context(), rel, sanitizeText(req.Content), req.Append, backup)
		respond(c, res)
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "read request body: " + err.Error()})
		return
	}
	res := h.store.WriteBinary(c.Request.Context(), rel, data, boolQuery(c, "backup", true))
	respond(c, res)
}

// DeleteFile removes a file, archiving it unless ?archive=false.
func (h *Handlers) DeleteFile(c *gin.Context) {
	rel := pathParam(c)
	res := h.store.DeleteFile(c.Request.Context(), rel, boolQuery(c, "archive", true))
	respond(c, res)
}

// ListDirectory lists the files in a directory, optionally filtered by
// ?pattern=. ?dirs=true includes subdirectories in the listing.
func (h *Handlers) ListDirectory(c *gin.Context) {
	rel := pathParam(c)
	res := h.store.ListDirectory(c.Request.Context(), rel, c.Query("pattern"), boolQuery(c, "dirs", false))
	respond(c, res)
}

// CreateDirectory creates a directory and its parents. ?mode= sets the
// permission bits as an octal string (default 0755).
func (h *Handlers) CreateDirectory(c *gin.Context) {
	rel := pathParam(c)

	var perm fs.FileMode
	if mode := c.Query("mode"); mode != "" {
		bits, err := strconv.ParseUint(mode, 8, 32)
		if err != nil || bits > 0o777 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid mode: " + mode})
			return
		}
		perm = fs.FileMode(bits)
	}

	res := h.store.CreateDirectory(c.Request.Context(), rel, perm)
	respond(c, res)
}

// FileInfo returns full metadata for a path.
func (h *Handlers) FileInfo(c *gin.Context) {
	rel := pathParam(c)
	res := h.store.GetFileInfo(c.Request.Context(), rel)
	respond(c, res)
}

// Search finds files by name. ?q= matches a case-insensitive substring;
// ?glob= matches a gitignore-style pattern instead. ?ext= narrows by
// extension (comma-separated) and ?limit= caps results.
func (h *Handlers) Search(c *gin.Context) {
	rel := strings.Trim(c.Query("path"), "/")

	if pattern := c.Query("glob"); pattern != "" {
		res := h.store.Glob(c.Request.Context(), rel, pattern)
		respond(c, res)
		return
	}

	opts := vault.SearchOptions{}
	if exts := c.Query("ext"); exts != "" {
		opts.Extensions = strings.Split(exts, ",")
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid limit"})
			return
		}
		opts.MaxResults = n
	}

	res := h.store.SearchFiles(c.Request.Context(), rel, c.Query("q"), opts)
	respond(c, res)
}

type transferRequest struct {
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	Overwrite bool   `json:"overwrite"`
}

// Move renames a file within the store.
func (h *Handlers) Move(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}
	res := h.store.MoveFile(c.Request.Context(), req.From, req.To, req.Overwrite)
	respond(c, res)
}

// Copy duplicates a file within the store.
func (h *Handlers) Copy(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}
	res := h.store.CopyFile(c.Request.Context(), req.From, req.To, req.Overwrite)
	respond(c, res)
}

type exportRequest struct {
	Path string `json:"path"`
}

// Export packs a subtree into a tar.gz under the temp area.
func (h *Handlers) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}
	res := h.store.ExportTarGz(c.Request.Context(), req.Path)
	respond(c, res)
}

type cleanupRequest struct {
	MaxAgeDays int `json:"max_age_days" binding:"required,min=1"`
}

// Cleanup reclaims archived files and version snapshots older than the
// requested age.
func (h *Handlers) Cleanup(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}
	res := h.store.CleanupArchive(c.Request.Context(), time.Duration(req.MaxAgeDays)*24*time.Hour)
	respond(c, res)
}

// Metrics returns the JSON metrics snapshot and refreshes the store-state
// gauges as a side effect.
func (h *Handlers) Metrics(c *gin.Context) {
	store := h.store.MetricsSnapshot()
	snap := h.metrics.GetSnapshot()

	if cache, ok := store.Data["cache"].(map[string]interface{}); ok {
		entries, _ := cache["entries"].(int)
		hitRate, _ := cache["hit_rate"].(float64)
		checksums, _ := store.Data["checksums"].(int)
		events, _ := store.Data["security_events"].(int64)
		h.metrics.SetStoreState(entries, hitRate, checksums, events)
	}

	avg := 0.0
	if snap.RequestCount > 0 {
		avg = snap.TotalDuration / float64(snap.RequestCount)
	}
	c.JSON(http.StatusOK, gin.H{
		"store": store.Data,
		"http": gin.H{
			"total_requests":           snap.TotalRequests,
			"total_errors":             snap.TotalErrors,
			"average_duration_seconds": avg,
		},
		"uptime_seconds": h.metrics.UptimeSeconds(),
	})
}
