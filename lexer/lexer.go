package lexer

import (
	"github.com/ChezJrk/exo/token"
)

// Lexer scans one source file into tokens. Indentation is significant:
// the lexer emits NEWLINE at the end of each logical line and INDENT /
// DEINDENT when the leading whitespace of a line grows or shrinks,
// Python-style. Inside (), [] and {} pairs newlines and indentation are
// not significant, so a splice expression may span lines.
type Lexer struct {
	file         string
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination

	line int // 1-based line of curr
	col  int // 1-based column of curr

	indents  []int         // stack of indentation widths, always starts with 0
	pending  []token.Token // queued INDENT/DEINDENT bursts
	atStart  bool          // true when positioned at the start of a line
	brackets int           // open (, [ and { pairs
	lastType token.TokenType
}

func New(file, input string) *Lexer {
	l := &Lexer{
		file:    file,
		input:   []rune(input),
		line:    1,
		col:     0,
		indents: []int{0},
		atStart: true,
	}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	tok := l.next()
	l.lastType = tok.Type
	return tok
}

func (l *Lexer) next() token.Token {
	for {
		if len(l.pending) > 0 {
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok
		}

		if l.atStart && l.brackets == 0 {
			l.scanIndentation()
			continue
		}

		l.skipInlineSpace()

		if l.curr == '#' {
			for l.curr != '\n' && l.curr != 0 {
				l.readRune()
			}
			continue
		}

		if l.curr == '\n' {
			if l.brackets > 0 {
				l.readRune()
				continue
			}
			tok := l.mkToken(token.NEWLINE, "\n")
			l.readRune()
			l.atStart = true
			return tok
		}

		if l.curr == 0 {
			return l.eofToken()
		}

		return l.scanToken()
	}
}

// scanIndentation consumes leading whitespace at the start of a line,
// skipping blank and comment-only lines, and queues INDENT/DEINDENT
// tokens for a change in depth.
func (l *Lexer) scanIndentation() {
	l.atStart = false

	width := 0
	for {
		switch l.curr {
		case ' ':
			width++
			l.readRune()
			continue
		case '\t':
			width += 8 - width%8
			l.readRune()
			continue
		}
		break
	}

	// Blank or comment-only lines carry no indentation information.
	if l.curr == '#' {
		for l.curr != '\n' && l.curr != 0 {
			l.readRune()
		}
	}
	if l.curr == '\n' {
		l.readRune()
		l.atStart = true
		return
	}
	if l.curr == 0 {
		return
	}

	top := l.indents[len(l.indents)-1]
	if width > top {
		l.indents = append(l.indents, width)
		l.pending = append(l.pending, l.mkToken(token.INDENT, ""))
		return
	}
	for width < l.indents[len(l.indents)-1] {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, l.mkToken(token.DEINDENT, ""))
	}
	if width != l.indents[len(l.indents)-1] {
		l.pending = append(l.pending, l.mkToken(token.ILLEGAL, "unindent does not match any outer indentation level"))
	}
}

// eofToken terminates the final line and unwinds the indent stack
// before reporting EOF.
func (l *Lexer) eofToken() token.Token {
	switch l.lastType {
	case 0, token.NEWLINE, token.INDENT, token.DEINDENT, token.EOF:
	default:
		return l.mkToken(token.NEWLINE, "\n")
	}
	if len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		return l.mkToken(token.DEINDENT, "")
	}
	return l.mkToken(token.EOF, "")
}

func (l *Lexer) scanToken() token.Token {
	var tok token.Token

	switch l.curr {
	case '=':
		if l.peekRune() == '=' {
			tok = l.mkToken(token.EQL, "==")
			l.readRune()
		} else {
			tok = l.mkToken(token.ASSIGN, "=")
		}
	case '+':
		if l.peekRune() == '=' {
			tok = l.mkToken(token.ADD_ASSIGN, "+=")
			l.readRune()
		} else {
			tok = l.mkToken(token.ADD, "+")
		}
	case '-':
		tok = l.mkToken(token.SUB, "-")
	case '*':
		tok = l.mkToken(token.MUL, "*")
	case '/':
		tok = l.mkToken(token.QUO, "/")
	case '%':
		tok = l.mkToken(token.REM, "%")
	case '~':
		tok = l.mkToken(token.TILDE, "~")
	case '@':
		tok = l.mkToken(token.AT, "@")
	case '!':
		if l.peekRune() == '=' {
			tok = l.mkToken(token.NEQ, "!=")
			l.readRune()
		} else {
			tok = l.mkToken(token.ILLEGAL, string(l.curr))
		}
	case '<':
		if l.peekRune() == '=' {
			tok = l.mkToken(token.LEQ, "<=")
			l.readRune()
		} else {
			tok = l.mkToken(token.LSS, "<")
		}
	case '>':
		if l.peekRune() == '=' {
			tok = l.mkToken(token.GEQ, ">=")
			l.readRune()
		} else {
			tok = l.mkToken(token.GTR, ">")
		}
	case ',':
		tok = l.mkToken(token.COMMA, ",")
	case ':':
		tok = l.mkToken(token.COLON, ":")
	case '(':
		l.brackets++
		tok = l.mkToken(token.LPAREN, "(")
	case '[':
		l.brackets++
		tok = l.mkToken(token.LBRACK, "[")
	case '{':
		l.brackets++
		tok = l.mkToken(token.LBRACE, "{")
	case ')':
		l.closeBracket()
		tok = l.mkToken(token.RPAREN, ")")
	case ']':
		l.closeBracket()
		tok = l.mkToken(token.RBRACK, "]")
	case '}':
		l.closeBracket()
		tok = l.mkToken(token.RBRACE, "}")
	case '"':
		return l.readString()
	default:
		if isLetter(l.curr) {
			pos := l.pos()
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos}
		}
		if isDigit(l.curr) {
			return l.readNumber()
		}
		tok = l.mkToken(token.ILLEGAL, string(l.curr))
	}

	l.readRune()
	return tok
}

func (l *Lexer) closeBracket() {
	if l.brackets > 0 {
		l.brackets--
	}
}

func (l *Lexer) skipInlineSpace() {
	for l.curr == ' ' || l.curr == '\t' || l.curr == '\r' {
		l.readRune()
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) pos() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) mkToken(t token.TokenType, literal string) token.Token {
	return token.Token{Type: t, Literal: literal, Pos: l.pos()}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

// readNumber scans an INT, or a FLOAT when a decimal point follows the
// integer part.
func (l *Lexer) readNumber() token.Token {
	pos := l.pos()
	position := l.position
	for isDigit(l.curr) {
		l.readRune()
	}
	t := token.TokenType(token.INT)
	if l.curr == '.' {
		t = token.FLOAT
		l.readRune()
		for isDigit(l.curr) {
			l.readRune()
		}
	}
	return token.Token{Type: t, Literal: string(l.input[position:l.position]), Pos: pos}
}

// readString scans a double-quoted string literal. The returned literal
// has quotes stripped and escapes resolved.
func (l *Lexer) readString() token.Token {
	pos := l.pos()
	var out []rune
	l.readRune() // consume opening quote
	for l.curr != '"' {
		if l.curr == 0 || l.curr == '\n' {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Pos: pos}
		}
		if l.curr == '\\' {
			l.readRune()
			switch l.curr {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '\\', '"':
				out = append(out, l.curr)
			default:
				out = append(out, '\\', l.curr)
			}
			l.readRune()
			continue
		}
		out = append(out, l.curr)
		l.readRune()
	}
	l.readRune() // consume closing quote
	return token.Token{Type: token.STRING, Literal: string(out), Pos: pos}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
