package format

import (
	"fmt"
	"reflect"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeName returns the Cypher type name of a native property value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "Null"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "Integer"
	case float32, float64:
		return "Float"
	case []byte:
		return "ByteArray"
	case []any:
		return "List"
	case map[string]any:
		return "Map"
	case dbtype.Date:
		return "Date"
	case dbtype.Time:
		return "Time"
	case dbtype.LocalTime:
		return "LocalTime"
	case time.Time:
		return "DateTime"
	case dbtype.LocalDateTime:
		return "LocalDateTime"
	case dbtype.Duration:
		return "Duration"
	case dbtype.Point2D, dbtype.Point3D:
		return "Point"
	case dbtype.Node:
		return "Node"
	case dbtype.Relationship:
		return "Relationship"
	case dbtype.Path:
		return "Path"
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "List"
	case reflect.Map:
		return "Map"
	}
	return fmt.Sprintf("%T", v)
}
