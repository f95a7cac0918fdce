// Package sqltoken splits SQL text into tokens without parsing it.
//
// Every byte of the input belongs to exactly one token, so joining the token
// texts reproduces the input. String literals, quoted identifiers and comments
// are single tokens, which lets callers find keywords and punctuation without
// being fooled by their contents.
package sqltoken

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies a token.
type Kind int

const (
	Other Kind = iota
	Whitespace
	Comment
	String
	QuotedIdent
	Number
	Ident
	Punct
)

// SQLLexer defines the token rules. Rules are tried in order.
var SQLLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "String", Pattern: `'(?:''|\\.|[^'\\])*'`},
	{Name: "QuotedIdent", Pattern: "\"(?:\"\"|[^\"])*\"|`(?:``|[^`])*`"},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?(?:[eE][+-]?\d+)?|\.\d+`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_$]*`},
	{Name: "Punct", Pattern: `[(),;.]`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

var kinds = func() map[lexer.TokenType]Kind {
	names := map[string]Kind{
		"Comment":     Comment,
		"String":      String,
		"QuotedIdent": QuotedIdent,
		"Number":      Number,
		"Ident":       Ident,
		"Punct":       Punct,
		"Whitespace":  Whitespace,
		"Other":       Other,
	}
	out := make(map[lexer.TokenType]Kind, len(names))
	for name, tt := range SQLLexer.Symbols() {
		if k, ok := names[name]; ok {
			out[tt] = k
		}
	}
	return out
}()

// Token is one lexical unit of SQL text.
type Token struct {
	Kind Kind
	Text string
	// Offset is the byte offset of the token in the input.
	Offset int
}

// Is reports whether the token is the keyword kw, compared case-insensitively.
func (t Token) Is(kw string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Text == p
}

// Significant reports whether the token carries meaning, i.e. it is neither
// whitespace nor a comment.
func (t Token) Significant() bool {
	return t.Kind != Whitespace && t.Kind != Comment
}

// Tokenize splits sql into tokens.
func Tokenize(sql string) ([]Token, error) {
	lex, err := SQLLexer.LexString("", sql)
	if err != nil {
		return nil, err
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}

	out := make([]Token, 0, len(raw))
	for _, tok := range raw {
		if tok.EOF() {
			continue
		}
		out = append(out, Token{Kind: kinds[tok.Type], Text: tok.Value, Offset: tok.Pos.Offset})
	}
	return out, nil
}

// Join concatenates token texts.
func Join(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Significant returns the indexes of the significant tokens.
func Significant(tokens []Token) []int {
	idx := make([]int, 0, len(tokens))
	for i, t := range tokens {
		if t.Significant() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Depths returns the parenthesis depth of every token. An opening parenthesis
// has the depth of its surroundings; tokens after it are one level deeper.
func Depths(tokens []Token) []int {
	depths := make([]int, len(tokens))
	depth := 0
	for i, t := range tokens {
		if t.IsPunct(")") && depth > 0 {
			depth--
		}
		depths[i] = depth
		if t.IsPunct("(") {
			depth++
		}
	}
	return depths
}

// TrimTrailing drops trailing whitespace, comments and semicolons.
func TrimTrailing(tokens []Token) []Token {
	end := len(tokens)
	for end > 0 {
		t := tokens[end-1]
		if t.Significant() && !t.IsPunct(";") {
			break
		}
		end--
	}
	return tokens[:end]
}
