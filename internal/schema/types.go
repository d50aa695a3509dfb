package schema

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"` // as the database reports it: text, int4, varchar, INTEGER...
	IsNullable   bool    `json:"nullable"`
	IsPrimaryKey bool    `json:"primary_key"`
	DefaultValue *string `json:"default,omitempty"` // nil if no default
}

// TableInfo describes a table and its columns
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}
