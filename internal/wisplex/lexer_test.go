package wisplex

import "testing"

func TestNextTokenBasicTokens(t *testing.T) {
	input := `( ) { } [ ] , ; : ... .`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenLeftBrace, "{"},
		{TokenRightBrace, "}"},
		{TokenLeftBracket, "["},
		{TokenRightBracket, "]"},
		{TokenComma, ","},
		{TokenSemicolon, ";"},
		{TokenColon, ":"},
		{TokenDotDotDot, "..."},
		{TokenDot, "."},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.Next()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d]: type wrong, expected=%d got=%d (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d]: lexeme wrong, expected=%q got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestNextTokenOperators(t *testing.T) {
	input := `+ - * / % ! != = == < <= > >=`
	expected := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual, TokenEOF,
	}
	l := New(input)
	for i, want := range expected {
		got := l.Next().Type
		if got != want {
			t.Fatalf("tests[%d]: expected=%d got=%d", i, want, got)
		}
	}
}

func TestNextTokenKeywords(t *testing.T) {
	input := "and or if else while for foreach in break continue fun return class this super true false nil var print try catch finally throw import"
	expected := []TokenType{
		TokenAnd, TokenOr, TokenIf, TokenElse, TokenWhile, TokenFor, TokenForeach, TokenIn,
		TokenBreak, TokenContinue, TokenFun, TokenReturn, TokenClass, TokenThis, TokenSuper,
		TokenTrue, TokenFalse, TokenNil, TokenVar, TokenPrint, TokenTry, TokenCatch,
		TokenFinally, TokenThrow, TokenImport, TokenEOF,
	}
	l := New(input)
	for i, want := range expected {
		tok := l.Next()
		if tok.Type != want {
			t.Fatalf("tests[%d]: expected=%d got=%d (%q)", i, want, tok.Type, tok.Lexeme)
		}
	}
}

func TestNextTokenStringEscapes(t *testing.T) {
	l := New(`"hello\nworld\t\"quoted\""`)
	tok := l.Next()
	if tok.Type != TokenString {
		t.Fatalf("expected string token, got %d", tok.Type)
	}
	decoded, err := Unescape(tok.Lexeme)
	if err != nil {
		t.Fatalf("unescape error: %v", err)
	}
	if string(decoded) != "hello\nworld\t\"quoted\"" {
		t.Fatalf("unexpected decode: %q", decoded)
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`"unterminated`)
	tok := l.Next()
	if tok.Type != TokenError {
		t.Fatalf("expected error token, got %d", tok.Type)
	}
}

func TestNextTokenComments(t *testing.T) {
	l := New("// a line comment\n1 /* a block\ncomment */ 2")
	first := l.Next()
	if first.Type != TokenNumber || first.Lexeme != "1" {
		t.Fatalf("expected number 1, got %v", first)
	}
	second := l.Next()
	if second.Type != TokenNumber || second.Lexeme != "2" {
		t.Fatalf("expected number 2, got %v", second)
	}
}

func TestNextTokenNumbers(t *testing.T) {
	l := New("42 3.14")
	if tok := l.Next(); tok.Type != TokenNumber || tok.Lexeme != "42" {
		t.Fatalf("expected 42, got %v", tok)
	}
	if tok := l.Next(); tok.Type != TokenNumber || tok.Lexeme != "3.14" {
		t.Fatalf("expected 3.14, got %v", tok)
	}
}

func TestNextTokenLineTracking(t *testing.T) {
	l := New("1\n2\n\n3")
	lines := []int{1, 2, 4}
	for _, want := range lines {
		tok := l.Next()
		if tok.Line != want {
			t.Fatalf("expected line %d, got %d (%v)", want, tok.Line, tok)
		}
	}
}
