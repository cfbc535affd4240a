// Package sym defines canonical symbols for rowdb subsystems.
// They appear as the "symbol" field in structured logs and as prefixes in CLI output.
package sym

// Subsystem glyphs.
const (
	AM     = "≡" // am: configuration
	DB     = "⊔" // database/engine connection
	Schema = "▦" // schema compilation and reflection
	Query  = "⋈" // query building and execution
	Files  = "▤" // file-backed column store
)

// SymbolToCommand maps glyphs to the CLI command that manages that subsystem.
var SymbolToCommand = map[string]string{
	AM:     "am",
	DB:     "tables",
	Schema: "inspect",
	Query:  "select",
	Files:  "files",
}

// CommandToSymbol is the inverse of SymbolToCommand.
var CommandToSymbol = map[string]string{
	"am":      AM,
	"tables":  DB,
	"inspect": Schema,
	"select":  Query,
	"files":   Files,
}
