package uscis

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// step is one segment of an absolute element path such as "div[2]".
type step struct {
	tag   string
	index int // 1-based position among same-tag siblings, 0 means all
}

// Path is a compiled absolute element path, a small subset of XPath:
// "/html/body/div[2]/form/h1". Only element names and positional
// predicates are supported.
type Path struct {
	raw   string
	steps []step
}

// ParsePath compiles an absolute element path.
func ParsePath(raw string) (Path, error) {
	if !strings.HasPrefix(raw, "/") {
		return Path{}, fmt.Errorf("path %q must be absolute", raw)
	}

	var steps []step
	for _, seg := range strings.Split(raw[1:], "/") {
		s, err := parseStep(seg)
		if err != nil {
			return Path{}, fmt.Errorf("invalid path %q: %w", raw, err)
		}

		steps = append(steps, s)
	}

	return Path{raw: raw, steps: steps}, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}

	return p
}

func parseStep(seg string) (step, error) {
	if seg == "" {
		return step{}, fmt.Errorf("empty segment")
	}

	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return step{tag: strings.ToLower(seg)}, nil
	}

	if open == 0 || !strings.HasSuffix(seg, "]") {
		return step{}, fmt.Errorf("malformed segment %q", seg)
	}

	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil || n < 1 {
		return step{}, fmt.Errorf("segment %q needs a positive position", seg)
	}

	return step{tag: strings.ToLower(seg[:open]), index: n}, nil
}

func (p Path) String() string {
	return p.raw
}

// Find returns every element under root matched by the path.
func (p Path) Find(root *html.Node) []*html.Node {
	current := []*html.Node{root}

	for _, s := range p.steps {
		var next []*html.Node

		for _, n := range current {
			pos := 0
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || c.Data != s.tag {
					continue
				}

				pos++
				if s.index == 0 || s.index == pos {
					next = append(next, c)
				}
			}
		}

		if len(next) == 0 {
			return nil
		}

		current = next
	}

	return current
}

// textContent concatenates all text below n, like the DOM property of the same name.
func textContent(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}
