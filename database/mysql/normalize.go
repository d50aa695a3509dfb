package mysql

import (
	"database/sql"
	"strings"
)

// textTypes are the column types the driver hands back as []byte even
// though they hold text.
var textTypes = map[string]bool{
	"CHAR":       true,
	"VARCHAR":    true,
	"TEXT":       true,
	"TINYTEXT":   true,
	"MEDIUMTEXT": true,
	"LONGTEXT":   true,
	"ENUM":       true,
	"SET":        true,
	"JSON":       true,
	"DECIMAL":    true,
	"TIME":       true,
	"YEAR":       true,
}

// Normalize turns []byte values of text columns into strings. Binary
// columns (BLOB, BINARY, VARBINARY) keep their bytes.
func Normalize(col *sql.ColumnType, v any) any {
	b, ok := v.([]byte)
	if !ok || col == nil {
		return v
	}
	if textTypes[strings.ToUpper(col.DatabaseTypeName())] {
		return string(b)
	}
	return v
}
