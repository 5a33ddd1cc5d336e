package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `;[^\n]*`, Action: nil},

		// Function names and values
		{Name: "Global", Pattern: `@[a-zA-Z_][a-zA-Z0-9_.$]*`, Action: nil},
		{Name: "Local", Pattern: `%[a-zA-Z0-9_.$]+`, Action: nil},

		// Numeric literals (floats must come first)
		{Name: "Float", Pattern: `[-+]?[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?|[-+]?[0-9]+[eE][-+]?[0-9]+`, Action: nil},
		{Name: "Int", Pattern: `[-+]?0x[0-9a-fA-F]+|[-+]?[0-9]+`, Action: nil},

		// Keywords, labels and type names
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.$]*`, Action: nil},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}()[\],:=!]`, Action: nil},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	},
})
