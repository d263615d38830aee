package languages

import (
	"seek/internal/extract"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func RegisterTypeScript(r *extract.Registry) {
	r.Register(&extract.LanguageSpec{
		Name:     "typescript",
		Language: typescript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @kind.function
			(class_declaration name: (type_identifier) @name) @kind.class
			(method_definition name: (property_identifier) @name) @kind.method
			(export_statement (function_declaration name: (identifier) @name)) @kind.function
			(export_statement (class_declaration name: (type_identifier) @name)) @kind.class
			(interface_declaration name: (type_identifier) @name) @kind.interface
			(type_alias_declaration name: (type_identifier) @name) @kind.type_alias
			(enum_declaration name: (identifier) @name) @kind.enum
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @kind.variable
		`,
		Extensions: []string{"ts", "tsx"},
	})
}
