package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/logging"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/storage"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

const tsvContentType = "text/tab-separated-values"

// Server holds the dependencies of the HTTP handlers
type Server struct {
	store    DatasetStore
	registry *schema.Registry
	config   ServerConfig
	metrics  *Metrics
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(store DatasetStore, registry *schema.Registry, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if registry == nil {
		registry = schema.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    store,
		registry: registry,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// handleHealth reports service health and the dataset count
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.List()
	if err != nil {
		s.metrics.RecordHealthCheck(false)
		sendError(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	s.metrics.SetDatasets(len(datasets))
	sendSuccess(w, map[string]interface{}{
		"status":   "healthy",
		"datasets": len(datasets),
	})
}

// handleListSchemas lists the registered schemas
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	schemas := make([]*schema.Schema, 0, len(names))
	for _, name := range names {
		sch, _ := s.registry.Get(name)
		schemas = append(schemas, sch)
	}
	sendSuccess(w, schemas)
}

// handleValidate decodes the request body against a registered schema and
// reports the record count or the first problem
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("schema")
	if name == "" {
		sendError(w, "schema query parameter is required", http.StatusBadRequest)
		return
	}
	sch, ok := s.registry.Get(name)
	if !ok {
		sendError(w, fmt.Sprintf("Unknown schema %q", name), http.StatusNotFound)
		return
	}
	charset, ok := s.charset(w, r)
	if !ok {
		return
	}

	reader, err := tsv.NewReader(s.limitBody(w, r), tsv.ReaderConfig{Charset: charset})
	if err != nil {
		s.sendStreamError(w, r, "validate", err)
		return
	}
	defer reader.Close()

	result := ValidationResult{Schema: sch.Name, Valid: true}
	rec := sch.NewRecord()
	for {
		more, err := reader.Next()
		if err == nil && more {
			err = rec.Fill(reader)
		}
		if err != nil {
			verr, ok := validationError(reader, err)
			if !ok {
				s.sendStreamError(w, r, "validate", err)
				return
			}
			result.Valid = false
			result.Error = verr
			break
		}
		if !more {
			break
		}
		result.Records++
	}

	s.metrics.RecordStream("validate", result.Records, result.Valid)
	sendSuccess(w, result)
}

// handleListDatasets lists all datasets
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.List()
	if err != nil {
		s.internalError(w, r, "list datasets", err)
		return
	}
	s.metrics.SetDatasets(len(datasets))
	sendSuccess(w, datasets)
}

// handleCreateDataset creates a dataset from a registered or inline schema
func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, "name is required", http.StatusBadRequest)
		return
	}

	var sch *schema.Schema
	switch {
	case req.Schema != "" && req.Definition != nil:
		sendError(w, "schema and definition are mutually exclusive", http.StatusBadRequest)
		return
	case req.Schema != "":
		registered, ok := s.registry.Get(req.Schema)
		if !ok {
			sendError(w, fmt.Sprintf("Unknown schema %q", req.Schema), http.StatusNotFound)
			return
		}
		sch = registered
	case req.Definition != nil:
		if err := req.Definition.Validate(); err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		sch = req.Definition
	default:
		sendError(w, "schema or definition is required", http.StatusBadRequest)
		return
	}

	ds, err := s.store.Create(req.Name, sch)
	if err != nil {
		s.internalError(w, r, "create dataset", err)
		return
	}
	sendJSON(w, http.StatusCreated, ds)
}

// handleGetDataset returns dataset metadata
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	sendSuccess(w, ds)
}

// handleImportRecords appends the TSV request body to a dataset
func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	charset, ok := s.charset(w, r)
	if !ok {
		return
	}

	added, err := s.store.Import(ds.ID, s.limitBody(w, r), charset)
	if err != nil {
		s.sendStreamError(w, r, "import", err)
		return
	}
	s.metrics.RecordStream("import", added, true)
	sendSuccess(w, ImportResult{Added: added, Records: ds.Records + added})
}

// handleExportRecords streams a dataset as TSV
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	charset, ok := s.charset(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", tsvContentType)
	w.WriteHeader(http.StatusOK)
	n, err := s.store.Export(ds.ID, w, charset)
	if err != nil {
		// The status line is already sent
		s.metrics.RecordStream("export", n, false)
		logging.FromContext(r.Context(), s.logger).Error("export failed",
			zap.String("id", ds.ID), zap.Int64("records", n), zap.Error(err))
		return
	}
	s.metrics.RecordStream("export", n, true)
}

// handleDeleteDataset removes a dataset
func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, storage.ErrDatasetNotFound) {
			sendError(w, "Dataset not found", http.StatusNotFound)
			return
		}
		s.internalError(w, r, "delete dataset", err)
		return
	}
	sendSuccess(w, map[string]string{"id": id})
}

// dataset looks up the {id} URL parameter and writes a 404 when unknown
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*storage.Dataset, bool) {
	ds, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrDatasetNotFound) {
			sendError(w, "Dataset not found", http.StatusNotFound)
		} else {
			s.internalError(w, r, "get dataset", err)
		}
		return nil, false
	}
	return ds, true
}

// charset resolves the charset query parameter, falling back to the
// server default
func (s *Server) charset(w http.ResponseWriter, r *http.Request) (encoding.Encoding, bool) {
	name := r.URL.Query().Get("charset")
	if name == "" {
		return s.config.Charset, true
	}
	enc, err := tsv.LookupCharset(name)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return enc, true
}

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	if s.config.MaxBodySize <= 0 {
		return r.Body
	}
	return http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
}

// sendStreamError maps a failed import or validation to a status code
func (s *Server) sendStreamError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	s.metrics.RecordStream(operation, 0, false)

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		sendError(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
	case errors.Is(err, tsv.ErrFormat), errors.Is(err, schema.ErrNullViolation):
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, storage.ErrDatasetNotFound):
		sendError(w, "Dataset not found", http.StatusNotFound)
	default:
		s.internalError(w, r, operation, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	logging.FromContext(r.Context(), s.logger).Error(operation+" failed", zap.Error(err))
	sendError(w, "Internal server error", http.StatusInternalServerError)
}

// validationError converts a record problem into a report. It returns false
// for errors that are not about the record data.
func validationError(reader *tsv.Reader, err error) (*ValidationError, bool) {
	var ferr *tsv.FormatError
	if errors.As(err, &ferr) {
		return &ValidationError{
			Record:  ferr.Record,
			Cell:    ferr.Cell,
			Offset:  ferr.Offset,
			Message: ferr.Error(),
		}, true
	}
	if errors.Is(err, schema.ErrNullViolation) {
		return &ValidationError{
			Record:  reader.Record(),
			Offset:  reader.Offset(),
			Message: err.Error(),
		}, true
	}
	return nil, false
}
