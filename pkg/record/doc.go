// Package record binds fixed relational columns and one dynamic column
// into a single attribute namespace.
//
// Reads and writes go to the fixed columns first. Only when the fixed
// schema reports ErrUnknownField does a name fall back to the dotted path
// lookup in the dynamic attribute tree:
//
//	r := record.New(record.NewMapFields("id", "name"), "attributes")
//	_ = r.Set("name", attr.String("ada"))        // fixed column
//	_ = r.Set("prefs.theme", attr.String("dark")) // dynamic attribute
//
// OnLoad decodes the COLUMN_JSON payload of a fetched row and OnBeforeSave
// builds the COLUMN_CREATE expression to write back.
package record
