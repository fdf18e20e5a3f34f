package api

import (
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateDatasetRequest creates a dataset from a registered schema name or
// an inline definition
type CreateDatasetRequest struct {
	Name       string         `json:"name"`
	Schema     string         `json:"schema,omitempty"`
	Definition *schema.Schema `json:"definition,omitempty"`
}

// ImportResult reports a record upload
type ImportResult struct {
	Added   int64 `json:"added"`
	Records int64 `json:"records"`
}

// ValidationResult reports the outcome of checking a TSV body against a schema
type ValidationResult struct {
	Schema  string           `json:"schema"`
	Valid   bool             `json:"valid"`
	Records int64            `json:"records"`
	Error   *ValidationError `json:"error,omitempty"`
}

// ValidationError locates the first problem in a validated body
type ValidationError struct {
	Record  int64  `json:"record"`
	Cell    int    `json:"cell"`
	Offset  int64  `json:"offset"`
	Message string `json:"message"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind        string
	Port        int
	APIKey      string
	MaxBodySize int64             // Request body limit in bytes (0 = unlimited)
	Charset     encoding.Encoding // Default stream charset, nil for UTF-8
}
