package flowscript

import (
	"fmt"
)

type node interface {
	lineNo() int
}

type commandNode struct {
	line   int
	target string
	words  []token
}

type branch struct {
	line int
	cond []token
	body []node
}

type ifNode struct {
	line     int
	branches []branch
	elseBody []node
}

type whileNode struct {
	line int
	cond []token
	body []node
}

type forNode struct {
	line     int
	variable string
	items    []token
	body     []node
}

type functionNode struct {
	line int
	name string
	body []node
}

type returnNode struct {
	line  int
	words []token
}

type exitNode struct {
	line  int
	words []token
}

func (n *commandNode) lineNo() int  { return n.line }
func (n *ifNode) lineNo() int       { return n.line }
func (n *whileNode) lineNo() int    { return n.line }
func (n *forNode) lineNo() int      { return n.line }
func (n *functionNode) lineNo() int { return n.line }
func (n *returnNode) lineNo() int   { return n.line }
func (n *exitNode) lineNo() int     { return n.line }

type sourceLine struct {
	number int
	tokens []token
}

type parser struct {
	lines []sourceLine
	pos   int
}

// SyntaxError reports a malformed script line.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func parse(source []string) ([]node, error) {
	p := &parser{}
	for i, raw := range source {
		tokens, err := tokenize(raw)
		if err != nil {
			return nil, &SyntaxError{Line: i + 1, Message: err.Error()}
		}
		if len(tokens) == 0 {
			continue
		}
		p.lines = append(p.lines, sourceLine{number: i + 1, tokens: tokens})
	}

	body, stop, err := p.block()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, &SyntaxError{Line: stop.number, Message: fmt.Sprintf("unexpected %s", stop.tokens[0].text)}
	}
	return body, nil
}

// block parses statements until end of input or a line starting with end,
// elseif or else, which is returned unconsumed.
func (p *parser) block() ([]node, *sourceLine, error) {
	var body []node
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		head := line.tokens[0]

		if head.isWord("end") || head.isWord("elseif") || head.isWord("else") {
			return body, &line, nil
		}
		p.pos++

		n, err := p.statement(line)
		if err != nil {
			return nil, nil, err
		}
		body = append(body, n)
	}
	return body, nil, nil
}

func (p *parser) statement(line sourceLine) (node, error) {
	tokens := line.tokens
	head := tokens[0]

	switch {
	case head.isWord("if"):
		return p.ifBlock(line)
	case head.isWord("while"):
		if len(tokens) < 2 {
			return nil, &SyntaxError{Line: line.number, Message: "while requires a condition"}
		}
		body, err := p.closedBlock(line, "while")
		if err != nil {
			return nil, err
		}
		return &whileNode{line: line.number, cond: tokens[1:], body: body}, nil
	case head.isWord("for"):
		if len(tokens) < 3 || !tokens[2].isWord("in") || !isIdentifier(tokens[1].text) {
			return nil, &SyntaxError{Line: line.number, Message: "expected: for <name> in <items...>"}
		}
		body, err := p.closedBlock(line, "for")
		if err != nil {
			return nil, err
		}
		return &forNode{line: line.number, variable: tokens[1].text, items: tokens[3:], body: body}, nil
	case head.isWord("function"):
		if len(tokens) != 2 || !isIdentifier(tokens[1].text) {
			return nil, &SyntaxError{Line: line.number, Message: "expected: function <name>"}
		}
		body, err := p.closedBlock(line, "function")
		if err != nil {
			return nil, err
		}
		return &functionNode{line: line.number, name: tokens[1].text, body: body}, nil
	case head.isWord("return"):
		return &returnNode{line: line.number, words: tokens[1:]}, nil
	case head.isWord("exit"):
		return &exitNode{line: line.number, words: tokens[1:]}, nil
	case len(tokens) >= 2 && tokens[1].isWord("=") && !head.quoted:
		if !isIdentifier(head.text) {
			return nil, &SyntaxError{Line: line.number, Message: fmt.Sprintf("invalid variable name %q", head.text)}
		}
		return &commandNode{line: line.number, target: head.text, words: tokens[2:]}, nil
	default:
		return &commandNode{line: line.number, words: tokens}, nil
	}
}

func (p *parser) ifBlock(line sourceLine) (node, error) {
	if len(line.tokens) < 2 {
		return nil, &SyntaxError{Line: line.number, Message: "if requires a condition"}
	}
	n := &ifNode{line: line.number}
	cond := line.tokens[1:]
	condLine := line.number

	for {
		body, stop, err := p.block()
		if err != nil {
			return nil, err
		}
		if stop == nil {
			return nil, &SyntaxError{Line: line.number, Message: "if without end"}
		}
		n.branches = append(n.branches, branch{line: condLine, cond: cond, body: body})
		p.pos++

		head := stop.tokens[0]
		switch {
		case head.isWord("end"):
			return n, nil
		case head.isWord("elseif"):
			if len(stop.tokens) < 2 {
				return nil, &SyntaxError{Line: stop.number, Message: "elseif requires a condition"}
			}
			cond = stop.tokens[1:]
			condLine = stop.number
		case head.isWord("else"):
			elseBody, end, err := p.block()
			if err != nil {
				return nil, err
			}
			if end == nil || !end.tokens[0].isWord("end") {
				return nil, &SyntaxError{Line: stop.number, Message: "else without end"}
			}
			p.pos++
			n.elseBody = elseBody
			return n, nil
		}
	}
}

func (p *parser) closedBlock(line sourceLine, keyword string) ([]node, error) {
	body, stop, err := p.block()
	if err != nil {
		return nil, err
	}
	if stop == nil || !stop.tokens[0].isWord("end") {
		return nil, &SyntaxError{Line: line.number, Message: keyword + " without end"}
	}
	p.pos++
	return body, nil
}
