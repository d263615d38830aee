package languages

import (
	"seek/internal/extract"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *extract.Registry) {
	r.Register(&extract.LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @kind.function
			(class_declaration name: (identifier) @name) @kind.class
			(method_definition name: (property_identifier) @name) @kind.method
			(export_statement (function_declaration name: (identifier) @name)) @kind.function
			(export_statement (class_declaration name: (identifier) @name)) @kind.class
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @kind.variable
		`,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})
}
