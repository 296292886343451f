// Package flowscript implements a small, portable command language for task
// scripts that must behave the same on every platform.
//
// A script is a sequence of lines of the form
//
//	[variable =] command arguments...
//
// with ${name} and $N expansion, double and single quoted arguments, #
// comments and if/elseif/else, while, for and function blocks closed by end.
package flowscript

import (
	"fmt"
	"strings"
)

type token struct {
	text string
	// quoted tokens are never split into lists and never treated as keywords.
	quoted bool
	// literal tokens (single quoted) are not expanded.
	literal bool
}

func tokenize(line string) ([]token, error) {
	var tokens []token
	runes := []rune(line)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\r':
			i++
		case r == '#':
			return tokens, nil
		case r == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					switch runes[i+1] {
					case 'n':
						b.WriteRune('\n')
					case 't':
						b.WriteRune('\t')
					default:
						b.WriteRune(runes[i+1])
					}
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated double quote")
			}
			tokens = append(tokens, token{text: b.String(), quoted: true})
		case r == '\'':
			end := strings.IndexRune(string(runes[i+1:]), '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated single quote")
			}
			text := string(runes[i+1:])[:end]
			tokens = append(tokens, token{text: text, quoted: true, literal: true})
			i += 1 + len([]rune(text)) + 1
		default:
			start := i
			for i < len(runes) && runes[i] != ' ' && runes[i] != '\t' && runes[i] != '\r' {
				i++
			}
			tokens = append(tokens, token{text: string(runes[start:i])})
		}
	}
	return tokens, nil
}

func (t token) isWord(word string) bool {
	return !t.quoted && t.text == word
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
