package expr

import "strings"

// tokenKind identifies the kind of a fragment token.
type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokWord             // field name, keyword, bare value or date literal
	tokString           // 'quoted' (Text holds the inner text)
	tokOp               // = != <> < <= > >=
	tokLParen           // (
	tokRParen           // )
	tokComma            // ,
)

// token is one lexical unit of a fragment. Pos and End are byte offsets
// into the fragment; for strings they include the quotes.
type token struct {
	Kind tokenKind
	Text string
	Pos  int
	End  int
}

// is reports whether the token is the given keyword, case-insensitively.
func (t token) is(keyword string) bool {
	return t.Kind == tokWord && strings.EqualFold(t.Text, keyword)
}

// lexer tokenizes a single clause. Strings run to the next single quote;
// there is no escape syntax.
type lexer struct {
	input string
	pos   int
}

func tokenize(input string) ([]token, error) {
	l := &lexer{input: input}
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) peekAt(offset int) byte {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	return l.input[p]
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if start >= len(l.input) {
		return token{Kind: tokEOF, Pos: start, End: start}, nil
	}

	emit := func(kind tokenKind, n int) token {
		l.pos += n
		return token{Kind: kind, Text: l.input[start:l.pos], Pos: start, End: l.pos}
	}

	switch ch := l.input[start]; ch {
	case '\'':
		end := strings.IndexByte(l.input[start+1:], '\'')
		if end < 0 {
			return token{}, newParseError(l.input, start, "unterminated string")
		}
		l.pos = start + 1 + end + 1
		return token{Kind: tokString, Text: l.input[start+1 : l.pos-1], Pos: start, End: l.pos}, nil
	case '(':
		return emit(tokLParen, 1), nil
	case ')':
		return emit(tokRParen, 1), nil
	case ',':
		return emit(tokComma, 1), nil
	case '=':
		return emit(tokOp, 1), nil
	case '!':
		if l.peekAt(1) == '=' {
			return emit(tokOp, 2), nil
		}
		return token{}, newParseError(l.input, start, "unexpected '!'")
	case '<':
		if next := l.peekAt(1); next == '=' || next == '>' {
			return emit(tokOp, 2), nil
		}
		return emit(tokOp, 1), nil
	case '>':
		if l.peekAt(1) == '=' {
			return emit(tokOp, 2), nil
		}
		return emit(tokOp, 1), nil
	}

	for l.pos < len(l.input) && !isDelimiter(l.input[l.pos]) {
		l.pos++
	}
	return token{Kind: tokWord, Text: l.input[start:l.pos], Pos: start, End: l.pos}, nil
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("'(),=!<>", ch) >= 0
}
