package classfile

// sigScanner walks field/method descriptors and generic signatures and
// reports every class type they mention. Descriptors are a subset of the
// signature grammar, so one scanner serves both.
type sigScanner struct {
	s    string
	i    int
	emit func(internal string)
}

// scanSignature reports the internal name of every class type in s.
// Malformed input is scanned best-effort; it never panics.
func scanSignature(s string, emit func(string)) {
	p := &sigScanner{s: s, emit: emit}
	if p.peek() == '<' {
		p.formalTypeParameters()
	}
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case 'L':
			p.i++
			p.classType()
		case 'T':
			p.typeVariable()
		default:
			// '(', ')', '[', '^', 'V' and primitive codes.
			p.i++
		}
	}
}

func (p *sigScanner) peek() byte {
	if p.i < len(p.s) {
		return p.s[p.i]
	}
	return 0
}

// formalTypeParameters consumes <T:Lbound;U::Liface;> style declarations.
func (p *sigScanner) formalTypeParameters() {
	p.i++ // '<'
	for p.i < len(p.s) && p.s[p.i] != '>' {
		// identifier
		for p.i < len(p.s) && p.s[p.i] != ':' {
			p.i++
		}
		// class bound then interface bounds, each introduced by ':'
		for p.peek() == ':' {
			p.i++
			switch p.peek() {
			case 'L', 'T', '[':
				p.referenceType()
			}
		}
	}
	if p.peek() == '>' {
		p.i++
	}
}

func (p *sigScanner) referenceType() {
	switch p.peek() {
	case 'L':
		p.i++
		p.classType()
	case 'T':
		p.typeVariable()
	case '[':
		p.i++
		switch p.peek() {
		case 'L', 'T', '[':
			p.referenceType()
		default:
			p.i++ // primitive element
		}
	default:
		p.i++
	}
}

func (p *sigScanner) typeVariable() {
	for p.i < len(p.s) && p.s[p.i] != ';' {
		p.i++
	}
	p.i++
}

// classType is entered just after the 'L'.
func (p *sigScanner) classType() {
	start := p.i
	for p.i < len(p.s) && !isClassTypeDelimiter(p.s[p.i]) {
		p.i++
	}
	name := p.s[start:p.i]

	for p.i < len(p.s) {
		switch p.s[p.i] {
		case '<':
			p.typeArguments()
		case '.':
			// Inner class of a parameterized outer: Outer<..>.Inner
			p.i++
			innerStart := p.i
			for p.i < len(p.s) && !isClassTypeDelimiter(p.s[p.i]) {
				p.i++
			}
			name = name + "$" + p.s[innerStart:p.i]
		case ';':
			p.i++
			if name != "" {
				p.emit(name)
			}
			return
		default:
			p.i++
		}
	}
	if name != "" {
		p.emit(name)
	}
}

func (p *sigScanner) typeArguments() {
	p.i++ // '<'
	for p.i < len(p.s) && p.s[p.i] != '>' {
		switch p.s[p.i] {
		case '*', '+', '-':
			p.i++
		default:
			p.referenceType()
		}
	}
	if p.peek() == '>' {
		p.i++
	}
}

func isClassTypeDelimiter(c byte) bool {
	return c == '<' || c == '.' || c == ';'
}
