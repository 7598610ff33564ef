package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/blendflow/internal/blend"
	"github.com/dunamismax/blendflow/internal/config"
	"github.com/dunamismax/blendflow/internal/plugin"
	"github.com/dunamismax/blendflow/internal/upload"
)

var (
	ErrInvalidBatch         = errors.New("invalid batch size")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

var acceptedMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

type pluginResolver interface {
	Resolve(ctx context.Context, batch plugin.Batch) (image.Image, bool)
}

type Server struct {
	logger   *log.Logger
	limits   config.LimitsConfig
	engine   blend.Engine
	resolver pluginResolver
	metrics  *metrics
	tracer   trace.Tracer
	mux      *http.ServeMux
}

func NewServer(logger *log.Logger, limits config.LimitsConfig, engine blend.Engine, resolver pluginResolver) *Server {
	s := &Server{
		logger:   logger,
		limits:   limits,
		engine:   engine,
		resolver: resolver,
		metrics:  newMetrics(),
		tracer:   otel.Tracer("blendflow/api"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /v1/blend", s.handleBlend)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBlend runs one request through validation, persistence, blending
// and encoding. The workspace holding the stored uploads is removed on
// every exit path.
func (s *Server) handleBlend(w http.ResponseWriter, r *http.Request) {
	span := trace.SpanFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.limits.MaxRequestBytes())
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Printf("multipart form cleanup failed: %v", err)
		}
	}()

	parts := collectFileParts(r.MultipartForm)
	span.SetAttributes(attribute.Int("blend.batch_size", len(parts)))

	if err := s.validateBatch(parts); err != nil {
		s.writeError(w, span, err)
		return
	}

	workspace, err := upload.NewWorkspace(s.limits.Workspace)
	if err != nil {
		s.logger.Printf("workspace create failed: %v", err)
		s.writeError(w, span, err)
		return
	}
	defer func() {
		if err := workspace.Remove(); err != nil {
			s.logger.Printf("workspace cleanup failed dir=%s err=%v", workspace.Dir, err)
		}
	}()

	batch := plugin.Batch{
		Buffers: make([][]byte, 0, len(parts)),
		Paths:   make([]string, 0, len(parts)),
		WorkDir: workspace.Dir,
	}
	for _, part := range parts {
		dest, data, err := s.persistUpload(workspace, part)
		if err != nil {
			s.writeError(w, span, err)
			return
		}
		batch.Buffers = append(batch.Buffers, data)
		batch.Paths = append(batch.Paths, dest)
	}
	span.AddEvent("uploads persisted")

	result, source, err := s.blendBatch(r.Context(), batch)
	if err != nil {
		s.metrics.blendsTotal.WithLabelValues(source, "error").Inc()
		s.writeError(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("blend.source", source))

	encoded, err := blend.EncodePNG(result)
	if err != nil {
		s.metrics.blendsTotal.WithLabelValues(source, "error").Inc()
		s.writeError(w, span, err)
		return
	}

	s.metrics.blendsTotal.WithLabelValues(source, "ok").Inc()
	span.SetStatus(codes.Ok, "blended")

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(encoded); err != nil {
		s.logger.Printf("write response failed: %v", err)
	}
}

func (s *Server) validateBatch(parts []*multipart.FileHeader) error {
	if len(parts) < s.limits.MinFiles || len(parts) > s.limits.MaxFiles {
		return fmt.Errorf("%w: please upload between %d and %d images", ErrInvalidBatch, s.limits.MinFiles, s.limits.MaxFiles)
	}
	for _, part := range parts {
		mediaType := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Type")))
		if cut, _, ok := strings.Cut(mediaType, ";"); ok {
			mediaType = strings.TrimSpace(cut)
		}
		if acceptedMediaTypes[mediaType] {
			continue
		}
		if upload.AcceptedExt(filepath.Ext(part.Filename)) {
			continue
		}
		return fmt.Errorf("%w: only PNG, JPEG, or WebP images are allowed", ErrUnsupportedMediaType)
	}
	return nil
}

func (s *Server) persistUpload(workspace *upload.Workspace, part *multipart.FileHeader) (string, []byte, error) {
	f, err := part.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload %q: %w", part.Filename, err)
	}
	defer f.Close()

	dest := workspace.Path(upload.Sanitize(part.Filename))
	data, err := upload.SaveLimited(dest, f, s.limits.MaxFileBytes(), part.Filename)
	if err != nil {
		return "", nil, err
	}
	return dest, data, nil
}

// blendBatch tries the external plugin first and falls back to the
// built-in engine. Plugin failures never surface; only an engine failure
// reaches the client.
func (s *Server) blendBatch(ctx context.Context, batch plugin.Batch) (image.Image, string, error) {
	if s.resolver != nil {
		if img, ok := s.resolver.Resolve(ctx, batch); ok {
			return img, "plugin", nil
		}
	}

	img, err := s.engine.Blend(ctx, batch.Buffers)
	if err != nil {
		return nil, "engine", err
	}
	return img, "engine", nil
}

func (s *Server) writeError(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	switch {
	case errors.Is(err, ErrInvalidBatch):
		s.metrics.rejectionsTotal.WithLabelValues("batch_size").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrUnsupportedMediaType):
		s.metrics.rejectionsTotal.WithLabelValues("media_type").Inc()
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, upload.ErrPayloadTooLarge):
		s.metrics.rejectionsTotal.WithLabelValues("payload_too_large").Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("blending failed: %s", err)})
	}
}

// collectFileParts flattens the file parts of a parsed multipart form.
// Order within a field follows the request body; fields are visited in
// sorted name order so the incremental blend strategy always sees a
// stable sequence.
func collectFileParts(form *multipart.Form) []*multipart.FileHeader {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []*multipart.FileHeader
	for _, field := range fields {
		parts = append(parts, form.File[field]...)
	}
	return parts
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
