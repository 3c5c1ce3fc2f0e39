package api

import (
	"log/slog"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/metrics"
	"github.com/ssargent/dynattr/pkg/record"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RecordResponse is one stored row: its fixed columns and its attribute tree
type RecordResponse struct {
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	Attributes *attr.Tree     `json:"attributes"`
}

// AttributeResponse is the value found at a dotted path
type AttributeResponse struct {
	Path  string     `json:"path"`
	Value attr.Value `json:"value" swaggertype:"object"`
}

// ExpressionResponse is the COLUMN_CREATE expression a save would send
type ExpressionResponse struct {
	SQL    string             `json:"sql"`
	Params []ParameterBinding `json:"params"`
}

// ParameterBinding is one named placeholder and its bound value
type ParameterBinding struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port    int
	Bind    string
	APIKey  string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// IRecordStore defines the row store operations the API needs
type IRecordStore interface {
	NewRecord() *record.Record
	Create(r *record.Record) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (*record.Record, error)
	Update(id ksuid.KSUID, fn func(*record.Record) error) (*record.Record, error)
	Delete(id ksuid.KSUID) error
	List() ([]ksuid.KSUID, error)
}
