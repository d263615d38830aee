package languages

import (
	"seek/internal/extract"

	"github.com/smacker/go-tree-sitter/python"
)

func RegisterPython(r *extract.Registry) {
	r.Register(&extract.LanguageSpec{
		Name:     "python",
		Language: python.GetLanguage(),
		Query: `
			(module (function_definition name: (identifier) @name) @kind.function)
			(class_definition name: (identifier) @name) @kind.class
			(decorated_definition definition: (function_definition name: (identifier) @name)) @kind.function
			(decorated_definition definition: (class_definition name: (identifier) @name)) @kind.class
		`,
		Extensions: []string{"py", "pyi"},
	})
}
