package http

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/nexza/filevault/internal/vault"
)

// statusFor maps store failure codes to HTTP status codes.
func statusFor(code vault.Code) int {
	switch code {
	case vault.CodeAccessDenied, vault.CodePermissionDenied:
		return http.StatusForbidden
	case vault.CodeNotFound:
		return http.StatusNotFound
	case vault.CodeNotAFile, vault.CodeNotADirectory, vault.CodeInvalidPattern:
		return http.StatusBadRequest
	case vault.CodeDecodeError:
		return http.StatusUnsupportedMediaType
	case vault.CodeSizeExceeded:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// respond writes a store result as JSON with the mapped status.
func respond(c *gin.Context, res *vault.Result) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}
	respondError(c, res)
}

func respondError(c *gin.Context, res *vault.Result) {
	c.JSON(statusFor(res.Code), res)
}

// pathParam extracts the wildcard path segment without its leading slash,
// so the empty string addresses the base directory.
func pathParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

// boolQuery reads a boolean query parameter with a default.
func boolQuery(c *gin.Context, name string, def bool) bool {
	v := c.Query(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// sanitizeText strips control characters from client-supplied text,
// keeping tabs and newlines. Stored bytes are exactly what survives this
// filter; the store itself never alters content.
func sanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
