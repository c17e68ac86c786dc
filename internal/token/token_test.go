package token

import "testing"

func TestScannerBasicTokens(t *testing.T) {
	input := `var a = 1 + 2 * (3 - 4) / 5;
print a == 10;`

	want := []Kind{
		Var, Identifier, Equal, Number, Plus, Number, Star, LeftParen, Number,
		Minus, Number, RightParen, Slash, Number, Semicolon,
		Print, Identifier, EqualEqual, Number, Semicolon,
		EOF,
	}

	s := New(input)
	for i, expect := range want {
		tok := s.Next()
		if tok.Kind != expect {
			t.Fatalf("token %d: got %v, want %v (lexeme %q)", i, tok.Kind, expect, tok.Lexeme)
		}
	}
}

func TestScannerKeywordsVsIdentifiers(t *testing.T) {
	s := New("andy fun")
	tok := s.Next()
	if tok.Kind != Identifier || tok.Lexeme != "andy" {
		t.Fatalf("got %v %q, want Identifier \"andy\"", tok.Kind, tok.Lexeme)
	}
	tok = s.Next()
	if tok.Kind != Fun {
		t.Fatalf("got %v, want Fun", tok.Kind)
	}
}

func TestScannerLineTracking(t *testing.T) {
	s := New("1\n2\n\n3")
	for _, wantLine := range []int{1, 2, 4} {
		tok := s.Next()
		if tok.Line != wantLine {
			t.Fatalf("got line %d, want %d", tok.Line, wantLine)
		}
	}
}

func TestScannerSkipsLineComments(t *testing.T) {
	s := New("// a comment\n42")
	tok := s.Next()
	if tok.Kind != Number || tok.Lexeme != "42" {
		t.Fatalf("got %v %q, want Number \"42\"", tok.Kind, tok.Lexeme)
	}
}

func TestScannerUnterminatedString(t *testing.T) {
	s := New(`"abc`)
	tok := s.Next()
	if tok.Kind != Error {
		t.Fatalf("got %v, want Error", tok.Kind)
	}
}

func TestScannerEOFRepeats(t *testing.T) {
	s := New("")
	for i := 0; i < 3; i++ {
		if tok := s.Next(); tok.Kind != EOF {
			t.Fatalf("iteration %d: got %v, want EOF", i, tok.Kind)
		}
	}
}
