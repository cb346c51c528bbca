package scan

import "strconv"

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isBasePrefix(ch byte) bool {
	switch ch {
	case 'x', 'X', 'o', 'O', 'q', 'Q', 'b', 'B', 'y', 'Y', 'd', 'D', 't', 'T':
		return true
	}
	return false
}

func isBaseSuffix(ch byte) bool {
	switch ch {
	case 'h', 'H', 'q', 'Q', 'o', 'O', 'b', 'B', 'y', 'Y', 'd', 'D', 't', 'T':
		return true
	}
	return false
}

func isAlnumUnderscore(ch byte) bool {
	return isHexDigit(ch) || ch == '_' || (ch >= 'g' && ch <= 'z') || (ch >= 'G' && ch <= 'Z')
}

// scanNumber reads an integer or floating-point literal starting at the
// scanner's current character (spec.md §4.1 "Numbers"). Integers accept a
// 0x/0o/0q/0b/0y/0d/0t base prefix or an h/q/o/b/y/d/t base suffix; floats
// are recognised by a '.' or e/p exponent but are not evaluated here — the
// raw text is handed to the evaluator's FloatParser (SPEC_FULL.md "A.
// Scanner").
func (s *Scanner) scanNumber() Token {
	line, col := s.line, s.col
	start := s.pos
	isFloat := false

	if s.ch == '0' && isBasePrefix(s.peek()) {
		s.advance()
		s.advance()
		for isAlnumUnderscore(s.ch) {
			s.advance()
		}
	} else {
		for isDigit(s.ch) || s.ch == '_' {
			s.advance()
		}
		if s.ch == '.' && isDigit(s.peek()) {
			isFloat = true
			s.advance()
			for isDigit(s.ch) || s.ch == '_' {
				s.advance()
			}
		}
		if s.ch == 'e' || s.ch == 'E' || s.ch == 'p' || s.ch == 'P' {
			markPos, markLine, markCol := s.pos, s.line, s.col
			markCh := s.ch
			s.advance()
			if s.ch == '+' || s.ch == '-' {
				s.advance()
			}
			if isDigit(s.ch) {
				isFloat = true
				for isDigit(s.ch) {
					s.advance()
				}
			} else {
				// Not an exponent after all (e.g. a trailing hex/base
				// suffix letter); rewind to just past the digits.
				s.pos, s.line, s.col = markPos, markLine, markCol
				s.ch = markCh
				s.readPos = s.pos + 1
			}
		}
		if !isFloat && isBaseSuffix(s.ch) {
			s.advance()
		}
	}

	text := s.input[start:s.pos]
	if isFloat {
		return Token{Kind: Float, StrVal: text, Line: line, Column: col}
	}

	val, ok := parseIntegerLiteral(text)
	if !ok {
		return Token{Kind: ErrorToken, StrVal: text, Line: line, Column: col}
	}
	return Token{Kind: Number, IntVal: val, StrVal: text, Line: line, Column: col}
}

// parseIntegerLiteral decodes every base spelling spec.md §4.1 recognises:
// 0x/0o/0q/0b/0y/0d/0t prefixes and h/q/o/b/y/d/t suffixes (case-insensitive),
// with plain digit runs defaulting to decimal.
func parseIntegerLiteral(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	base := 10
	body := text

	if len(text) > 1 && text[0] == '0' && isBasePrefix(text[1]) {
		switch lower(text[1]) {
		case 'x':
			base = 16
		case 'o', 'q':
			base = 8
		case 'b', 'y':
			base = 2
		case 'd', 't':
			base = 10
		}
		body = text[2:]
	} else if n := len(text); n > 1 && isBaseSuffix(text[n-1]) {
		switch lower(text[n-1]) {
		case 'h':
			base = 16
		case 'q', 'o':
			base = 8
		case 'b', 'y':
			base = 2
		case 'd', 't':
			base = 10
		}
		body = text[:n-1]
	}

	body = stripUnderscores(body)
	if body == "" {
		return 0, false
	}

	val, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return 0, false
	}
	return int64(val), true
}

func lower(ch byte) byte {
	if ch >= 'A' && ch <= 'Z' {
		return ch + ('a' - 'A')
	}
	return ch
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
