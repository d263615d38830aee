package languages

import (
	"seek/internal/extract"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *extract.Registry) {
	r.Register(&extract.LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @kind.function
			(method_declaration name: (field_identifier) @name) @kind.method
			(type_declaration (type_spec name: (type_identifier) @name type: (struct_type))) @kind.struct
			(type_declaration (type_spec name: (type_identifier) @name type: (interface_type))) @kind.interface
			(type_declaration (type_spec name: (type_identifier) @name)) @kind.type_alias
			(source_file (var_declaration (var_spec name: (identifier) @name)) @kind.variable)
		`,
		Extensions: []string{"go"},
	})
}
