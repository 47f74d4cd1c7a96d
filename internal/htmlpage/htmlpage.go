// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package htmlpage builds the small, self contained HTML documents
// used for default error pages.
package htmlpage

import (
	"fmt"
	"html"
	"strings"
)

// HeadingLevelError occurs when a heading level outside of 1 through 6 is requested.
type HeadingLevelError struct {
	Level int
}

// Error implements the [error] interface.
func (e HeadingLevelError) Error() string {
	return fmt.Sprintf("heading level must be between 1 and 6: %d", e.Level)
}

// Builder accumulates the body of an HTML document. All text is escaped.
type Builder struct {
	title string
	body  strings.Builder
}

// New returns a Builder for a document with the given title.
func New(title string) *Builder {
	return &Builder{title: title}
}

// Heading appends a h1 through h6 element.
func (b *Builder) Heading(level int, text string) error {
	if level < 1 || level > 6 {
		return HeadingLevelError{Level: level}
	}
	b.element(fmt.Sprintf("h%d", level), html.EscapeString(text))
	return nil
}

// Paragraph appends a p element.
func (b *Builder) Paragraph(text string) {
	b.element("p", html.EscapeString(text))
}

// Pre appends a pre element, preserving whitespace.
func (b *Builder) Pre(text string) {
	b.element("pre", html.EscapeString(text))
}

// Link appends a paragraph containing a single anchor.
func (b *Builder) Link(href, text string) {
	a := fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
	b.element("p", a)
}

func (b *Builder) element(name, inner string) {
	fmt.Fprintf(&b.body, "<%s>%s</%s>\n", name, inner, name)
}

// String renders the complete document.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString("<!doctype html>\n")
	sb.WriteString("<html>\n")
	sb.WriteString("<head><meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title></head>\n", html.EscapeString(b.title))
	sb.WriteString("<body>\n")
	sb.WriteString(b.body.String())
	sb.WriteString("</body></html>\n")
	return sb.String()
}
