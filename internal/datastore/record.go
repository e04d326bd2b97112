package datastore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/lepinkainen/brickmass/internal/parts"
)

// PartsTable is the table written by ReplaceParts.
const PartsTable = "parts"

// PartsSchema mirrors the JSON document, one row per part.
const PartsSchema = `CREATE TABLE IF NOT EXISTS parts (
	id TEXT PRIMARY KEY,
	name TEXT,
	overall_rank INTEGER,
	num_pieces INTEGER,
	num_sets INTEGER,
	num_colors INTEGER,
	begin_year INTEGER,
	end_year INTEGER,
	total_years INTEGER,
	weight REAL,
	pack_dim_x REAL,
	pack_dim_y REAL,
	pack_dim_z REAL,
	rebrickable_part_num TEXT,
	external_ids TEXT,
	enrichment_status TEXT
)`

// PartRecord converts a part into a column map for BatchInsert. Nil pointers
// become NULL and external ids are stored as JSON text.
func PartRecord(p parts.Part) (map[string]any, error) {
	record := make(map[string]any)

	v := reflect.ValueOf(p)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.Name == "ExternalIDs" {
			continue
		}
		record[toSnakeCase(field.Name)] = columnValue(v.Field(i))
	}

	ids := p.ExternalIDs
	if ids == nil {
		ids = parts.ExternalIDs{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode external ids for %s: %w", p.ID, err)
	}
	record["external_ids"] = string(encoded)

	return record, nil
}

func columnValue(value reflect.Value) any {
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() == reflect.String {
		return value.String()
	}
	return value.Interface()
}

func toSnakeCase(input string) string {
	runes := []rune(input)
	var builder strings.Builder
	builder.Grow(len(runes) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				var next rune
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					builder.WriteRune('_')
				} else if unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next) {
					builder.WriteRune('_')
				}
			}
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}
