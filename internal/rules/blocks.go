package rules

import (
	"regexp"
	"slices"
	"strings"
)

// Top-level block headers as written by `terraform fmt`. Nested blocks use
// other keywords, so a match always starts a new top-level block.
var (
	blockHeader = regexp.MustCompile(`(?m)^[ \t]*(resource|data|variable|output|locals|module|provider|terraform)((?:[ \t]+"[^"\n]*")*)[ \t]*\{`)
	blockLabel  = regexp.MustCompile(`"([^"\n]*)"`)
	typeAttr    = regexp.MustCompile(`(?m)^[ \t]*type[ \t]*=[ \t]*`)
)

// block is a top-level configuration block. body runs from the opening
// brace to the next top-level header, so nested braces never truncate it.
type block struct {
	kind   string
	labels []string
	body   string
}

func (b block) label(i int) string {
	if i < len(b.labels) {
		return b.labels[i]
	}
	return ""
}

// address renders resource and data blocks as TYPE.NAME.
func (b block) address() string {
	return b.label(0) + "." + b.label(1)
}

func splitBlocks(text string) []block {
	locs := blockHeader.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]block, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		b := block{
			kind: text[loc[2]:loc[3]],
			body: text[loc[1]:end],
		}
		for _, m := range blockLabel.FindAllStringSubmatch(text[loc[4]:loc[5]], -1) {
			b.labels = append(b.labels, m[1])
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func blocksOf(text, kind string) []block {
	var out []block
	for _, b := range splitBlocks(text) {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}

// resourcesOf returns resource blocks whose type is one of types, or every
// resource block when types is empty.
func resourcesOf(text string, types ...string) []block {
	var out []block
	for _, b := range blocksOf(text, "resource") {
		if len(types) == 0 || slices.Contains(types, b.label(0)) {
			out = append(out, b)
		}
	}
	return out
}

func hasResource(text string, types ...string) bool {
	return len(resourcesOf(text, types...)) > 0
}

// hasResourcePrefix reports whether any resource type starts with one of prefixes.
func hasResourcePrefix(text string, prefixes ...string) bool {
	for _, b := range blocksOf(text, "resource") {
		for _, p := range prefixes {
			if strings.HasPrefix(b.label(0), p) {
				return true
			}
		}
	}
	return false
}

// typeExpression extracts the value of a `type =` attribute from a variable
// body, balancing brackets and stopping at a trailing comment. The returned
// form has all whitespace removed.
func typeExpression(body string) (string, bool) {
	loc := typeAttr.FindStringIndex(body)
	if loc == nil {
		return "", false
	}

	rest := body[loc[1]:]
	depth := 0
	end := len(rest)
scan:
	for i, r := range rest {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			if depth == 0 {
				end = i
				break scan
			}
			depth--
		case '\n', '#':
			if depth == 0 {
				end = i
				break scan
			}
		case '/':
			if depth == 0 && strings.HasPrefix(rest[i:], "//") {
				end = i
				break scan
			}
		}
	}

	return strings.Join(strings.Fields(rest[:end]), ""), true
}

// balanced returns the bracketed expression opening at text[start]. All
// bracket kinds count toward depth. An unterminated expression runs to the
// end of text.
func balanced(text string, start int) string {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// maxDepth returns the deepest bracket nesting inside expr.
func maxDepth(expr string) int {
	depth, deepest := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(', '[', '{':
			depth++
			deepest = max(deepest, depth)
		case ')', ']', '}':
			depth--
		}
	}
	return deepest
}

var (
	forOpen    = regexp.MustCompile(`[\[{]\s*for\s`)
	forKeyword = regexp.MustCompile(`\bfor\s`)
	flattenOp  = regexp.MustCompile(`\bflatten\(`)
)

// forExpressions returns the outermost [for ...] and {for ...} expressions.
func forExpressions(text string) []string {
	var exprs []string
	end := -1
	for _, loc := range forOpen.FindAllStringIndex(text, -1) {
		if loc[0] < end {
			continue
		}
		expr := balanced(text, loc[0])
		exprs = append(exprs, expr)
		end = loc[0] + len(expr)
	}
	return exprs
}

// flattenCalls returns the argument lists of every flatten(...) call.
func flattenCalls(text string) []string {
	var calls []string
	for _, loc := range flattenOp.FindAllStringIndex(text, -1) {
		calls = append(calls, balanced(text, loc[1]-1))
	}
	return calls
}
