package db

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"floodwatch/internal/sensors"
	"floodwatch/internal/types"
)

// SensorRepository reads the schemaless live sensor and flood zone
// documents. Field normalization happens in the sensors package.
type SensorRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewSensorRepository creates a new SensorRepository.
func NewSensorRepository(db DBTX) *SensorRepository {
	return &SensorRepository{db: db, logger: slog.Default()}
}

// WithLogger sets the logger used to report skipped documents.
func (r *SensorRepository) WithLogger(logger *slog.Logger) *SensorRepository {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// ListLiveSensors returns every live telemetry document.
func (r *SensorRepository) ListLiveSensors(ctx context.Context) ([]sensors.RawRecord, error) {
	return r.listDocuments(ctx, `SELECT id, fields FROM sensors ORDER BY id`, "sensors")
}

// ListFloodZones returns every administrative flood zone document.
func (r *SensorRepository) ListFloodZones(ctx context.Context) ([]sensors.RawRecord, error) {
	return r.listDocuments(ctx, `SELECT id, fields FROM flood_zones ORDER BY id`, "flood zones")
}

func (r *SensorRepository) listDocuments(ctx context.Context, query, what string) ([]sensors.RawRecord, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list "+what, err)
	}
	defer rows.Close()

	var out []sensors.RawRecord
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan "+what, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			// One bad document must not hide the rest of the source.
			r.logger.WarnContext(ctx, "skipping malformed document", "source", what, "id", id, "error", err)
			continue
		}
		out = append(out, sensors.RawRecord{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate "+what, err)
	}
	return out, nil
}

// decodeFields keeps numbers as json.Number so integer ids and readings
// survive without float rounding.
func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
