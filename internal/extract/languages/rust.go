package languages

import (
	"seek/internal/extract"

	"github.com/smacker/go-tree-sitter/rust"
)

func RegisterRust(r *extract.Registry) {
	r.Register(&extract.LanguageSpec{
		Name:     "rust",
		Language: rust.GetLanguage(),
		Query: `
			(source_file (function_item name: (identifier) @name) @kind.function)
			(impl_item body: (declaration_list (function_item name: (identifier) @name) @kind.method))
			(struct_item name: (type_identifier) @name) @kind.struct
			(enum_item name: (type_identifier) @name) @kind.enum
			(trait_item name: (type_identifier) @name) @kind.trait
			(type_item name: (type_identifier) @name) @kind.type_alias
		`,
		Extensions: []string{"rs"},
	})
}
