package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mnecas/forklift-log-inspector-sub000/internal/archive"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/parser"
	apperrors "github.com/mnecas/forklift-log-inspector-sub000/internal/pkg/errors"
	"github.com/mnecas/forklift-log-inspector-sub000/internal/yamlconv"
)

// parseArchiveRequest is the JSON body of POST /parse/archive: the flat
// file list an external extractor produced.
type parseArchiveRequest struct {
	Files []archive.File `json:"files" binding:"required"`
}

// PostParse handles POST /api/v1/parse with raw log or YAML text in the body.
// The source format is sniffed unless forced with ?format=log|yaml.
func (s *Server) PostParse(c *gin.Context) {
	content, ok := s.readBody(c)
	if !ok {
		return
	}
	if strings.TrimSpace(content) == "" {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeEmptyInput, "request body is empty"))
		return
	}

	ctx, cancel := s.parseContext(c)
	defer cancel()

	format := c.Query("format")
	if format == "" {
		format = sniffFormat(content)
	}

	switch format {
	case "yaml":
		result, err := yamlconv.Parse(content)
		if err != nil {
			_ = c.Error(apperrors.Wrap(err, apperrors.CodeParseFailed, "yaml parse failed", http.StatusBadRequest))
			return
		}
		c.JSON(http.StatusOK, result)
	default:
		result, err := parser.Parse(ctx, content)
		if err != nil {
			// Cancelled or timed out: the partial result is still valid
			// output, the client learns about truncation via the status.
			c.JSON(http.StatusRequestTimeout, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// PostParseArchive handles POST /api/v1/parse/archive, which takes an
// extracted archive as a JSON file list. Classification and parsing never fail past
// this boundary; a malformed member degrades to an empty contribution.
func (s *Server) PostParseArchive(c *gin.Context) {
	var req parseArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "invalid file list", http.StatusBadRequest))
		return
	}
	for _, f := range req.Files {
		if int64(len(f.Content)) > s.cfg.Engine.MaxUploadBytes {
			_ = c.Error(apperrors.TooLarge(apperrors.CodePayloadTooLarge, "archive member exceeds size limit").
				WithParams(map[string]interface{}{"path": f.Path}))
			return
		}
	}

	ctx, cancel := s.parseContext(c)
	defer cancel()

	result := archive.Parse(ctx, req.Files, archive.Options{
		SniffLimit: s.cfg.Engine.SniffPrefixBytes,
		Pool:       s.pool,
	})
	c.JSON(http.StatusOK, result)
}

// readBody reads the request body under the configured size limit.
func (s *Server) readBody(c *gin.Context) (string, bool) {
	limited := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Engine.MaxUploadBytes)
	data, err := io.ReadAll(limited)
	if err != nil {
		_ = c.Error(apperrors.TooLarge(apperrors.CodePayloadTooLarge, "request body exceeds size limit"))
		return "", false
	}
	return string(data), true
}

// parseContext derives the parse deadline from the engine configuration.
func (s *Server) parseContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Engine.ParseTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.cfg.Engine.ParseTimeout)
}

// sniffFormat distinguishes YAML resources from log text by a cheap header
// scan, mirroring the archive classifier's rules.
func sniffFormat(content string) string {
	head := content
	if len(head) > archive.DefaultSniffLimit {
		head = head[:archive.DefaultSniffLimit]
	}
	if strings.Contains(head, yamlconv.APIGroup) && strings.Contains(head, "kind:") {
		return "yaml"
	}
	return "log"
}
