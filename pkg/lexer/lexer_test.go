package lexer

import "testing"

func collect(t *testing.T, text string) []Token {
	t.Helper()
	l := New(text)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF || tok.Kind == Error {
			return toks
		}
		if len(toks) > 100 {
			t.Fatalf("lexer did not terminate on %q", text)
		}
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		input string
		kinds []Kind
	}{
		{"setv va00 5", []Kind{Symbol, Symbol, Integer, EOF}},
		{"outs \"hi\"", []Kind{Symbol, String, EOF}},
		{"setv va00 -2.5", []Kind{Symbol, Symbol, Float, EOF}},
		{"doif va00 = 1 and va01 ne 2", []Kind{Symbol, Symbol, Comparator, Integer, Logical, Symbol, Comparator, Integer, EOF}},
		{"new: simp 2 3 4", []Kind{Symbol, Symbol, Integer, Integer, Integer, EOF}},
		{"* a comment\nstop", []Kind{Symbol, EOF}},
		{"[1 2 255]", []Kind{ByteString, EOF}},
		{"[]", []Kind{ByteString, EOF}},
		{"", []Kind{EOF}},
	}
	for _, tt := range tests {
		toks := collect(t, tt.input)
		if len(toks) != len(tt.kinds) {
			t.Errorf("%q: got %d tokens %v, want %d", tt.input, len(toks), toks, len(tt.kinds))
			continue
		}
		for i, k := range tt.kinds {
			if toks[i].Kind != k {
				t.Errorf("%q token %d: got %s, want %s", tt.input, i, toks[i].Kind, k)
			}
		}
	}
}

func TestDecodedValues(t *testing.T) {
	toks := collect(t, `SETV Va00 42 "a\"b\n" 1.5 [0 7] >= lt OR`)
	if toks[0].Text != "setv" || toks[1].Text != "va00" {
		t.Errorf("symbols not lower-cased: %q %q", toks[0].Text, toks[1].Text)
	}
	if toks[1].Raw != "Va00" {
		t.Errorf("raw text lost: %q", toks[1].Raw)
	}
	if toks[2].Int != 42 {
		t.Errorf("int: got %d", toks[2].Int)
	}
	if toks[3].Text != "a\"b\n" {
		t.Errorf("string: got %q", toks[3].Text)
	}
	if toks[4].Float != 1.5 {
		t.Errorf("float: got %v", toks[4].Float)
	}
	if len(toks[5].Bytes) != 2 || toks[5].Bytes[1] != 7 {
		t.Errorf("bytes: got %v", toks[5].Bytes)
	}
	if toks[6].Cmp != GE || toks[7].Cmp != LT {
		t.Errorf("comparators: got %v %v", toks[6].Cmp, toks[7].Cmp)
	}
	if toks[8].Kind != Logical || toks[8].Logic != Or {
		t.Errorf("logical: got %v", toks[8])
	}
}

func TestErrorTokens(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{`outs "open`, "unterminated string"},
		{"setv va00 12abc", "malformed number"},
		{"setv va00 99999999999", "integer out of range"},
		{`outs "bad \q"`, "bad escape in string"},
		{"[1 x]", "malformed byte-string"},
	}
	for _, tt := range tests {
		toks := collect(t, tt.input)
		last := toks[len(toks)-1]
		if last.Kind != Error {
			t.Errorf("%q: expected error token, got %v", tt.input, toks)
			continue
		}
		if last.Err != tt.err {
			t.Errorf("%q: got error %q, want %q", tt.input, last.Err, tt.err)
		}
	}
}

func TestStickyEnd(t *testing.T) {
	l := New("stop")
	l.Next()
	for i := 0; i < 3; i++ {
		if tok := l.Next(); tok.Kind != EOF {
			t.Fatalf("call %d after end: got %v", i, tok)
		}
	}

	l = New(`"open`)
	first := l.Next()
	if first.Kind != Error {
		t.Fatalf("expected error, got %v", first)
	}
	if again := l.Next(); again.Kind != Error {
		t.Fatalf("error not sticky: got %v", again)
	}
}

func TestBackupAndPeek(t *testing.T) {
	l := New("a b")
	if tok := l.Peek(); tok.Text != "a" {
		t.Fatalf("peek: got %v", tok)
	}
	if tok := l.Next(); tok.Text != "a" {
		t.Fatalf("next after peek: got %v", tok)
	}
	tok := l.Next()
	l.Backup()
	if again := l.Next(); again.Text != tok.Text {
		t.Fatalf("backup: got %v, want %v", again, tok)
	}
}

func TestPositions(t *testing.T) {
	toks := collect(t, "stop\n  wait 3")
	if toks[1].Line != 2 || toks[1].Column != 3 {
		t.Errorf("wait at line %d column %d, want 2:3", toks[1].Line, toks[1].Column)
	}
	if toks[1].Offset != 7 {
		t.Errorf("wait at offset %d, want 7", toks[1].Offset)
	}
}
