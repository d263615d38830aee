// Package languages registers the supported tree-sitter grammars.
package languages

import "seek/internal/extract"

// RegisterAll registers every supported language on the registry.
func RegisterAll(r *extract.Registry) {
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterPython(r)
	RegisterRust(r)
}
