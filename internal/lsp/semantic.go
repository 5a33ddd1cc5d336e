package lsp

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"loopfuse/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask
}

var keywords = map[string]bool{
	"func": true, "alloca": true, "load": true, "store": true, "volatile": true,
	"addr": true, "checked": true, "cmp": true, "convert": true, "to": true,
	"call": true, "nounwind": true, "phi": true, "jump": true, "br": true,
	"ret": true, "unreachable": true, "parallel": true, "true": true, "false": true,
	"add": true, "sub": true, "mul": true, "div": true, "rem": true, "and": true,
	"or": true, "xor": true, "shl": true, "shr": true, "andnot": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
}

var typeNames = map[string]bool{
	"i1": true, "i8": true, "i16": true, "i32": true, "i64": true,
	"f32": true, "f64": true, "bool": true, "ptr": true, "opaque": true, "void": true,
}

// collectSemanticTokens lexes source and classifies every token an editor
// would color. Lexing stops at the first invalid character.
func collectSemanticTokens(filename, source string) []SemanticToken {
	var tokens []SemanticToken

	lex, err := grammar.IRLexer.Lex(filename, strings.NewReader(source))
	if err != nil {
		return tokens
	}
	symbols := lexer.SymbolsByRune(grammar.IRLexer)

	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return tokens
		}

		var kind string
		switch symbols[tok.Type] {
		case "Comment":
			kind = "comment"
		case "Global":
			kind = "function"
		case "Local":
			kind = "variable"
		case "Float", "Int":
			kind = "number"
		case "Ident":
			switch {
			case keywords[tok.Value]:
				kind = "keyword"
			case typeNames[tok.Value]:
				kind = "type"
			default:
				kind = "property" // block label
			}
		default:
			continue
		}

		tokens = append(tokens, SemanticToken{
			Line:      uint32(tok.Pos.Line - 1),
			StartChar: uint32(tok.Pos.Column - 1),
			Length:    uint32(len([]rune(tok.Value))),
			TokenType: slices.Index(SemanticTokenTypes, kind),
		})
	}
}

// encodeSemanticTokens applies the delta-line, delta-start compression of
// the LSP wire format
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	var data []uint32
	var prevLine, prevStart uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		deltaStart := token.StartChar
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}
	return data
}
