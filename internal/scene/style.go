package scene

import (
	"strings"

	"github.com/beevik/etree"
)

// StyleProperty is one resolved (name, value, priority) triple. Priority is
// "important" or empty, captured verbatim so reapplication is bit-for-bit
// equivalent.
type StyleProperty struct {
	Name     string
	Value    string
	Priority string
}

// styleProperties is the fixed capture order for resolved style. Layout-only
// properties (width, height, visibility) are deliberately absent: the raster
// step sizes and positions the document itself.
var styleProperties = []string{
	"fill",
	"fill-opacity",
	"fill-rule",
	"stroke",
	"stroke-width",
	"stroke-opacity",
	"stroke-linecap",
	"stroke-linejoin",
	"stroke-miterlimit",
	"stroke-dasharray",
	"stroke-dashoffset",
	"opacity",
	"color",
	"display",
	"font-family",
	"font-size",
	"font-style",
	"font-weight",
	"text-anchor",
	"letter-spacing",
	"stop-color",
	"stop-opacity",
}

// inheritedProperties — свойства, наследуемые от предков при разрешении.
var inheritedProperties = map[string]bool{
	"fill":              true,
	"fill-opacity":      true,
	"fill-rule":         true,
	"stroke":            true,
	"stroke-width":      true,
	"stroke-opacity":    true,
	"stroke-linecap":    true,
	"stroke-linejoin":   true,
	"stroke-miterlimit": true,
	"stroke-dasharray":  true,
	"stroke-dashoffset": true,
	"color":             true,
	"font-family":       true,
	"font-size":         true,
	"font-style":        true,
	"font-weight":       true,
	"text-anchor":       true,
	"letter-spacing":    true,
}

// ResolvedStyleAt computes the post-animation style of el at the current
// clock position: for every retained property, the animated value wins over
// the inline style declaration, which wins over the presentation attribute;
// inherited properties fall back to the nearest ancestor that determines
// them. Properties nothing determines are omitted. Pure read.
func (s *Scene) ResolvedStyleAt(el *etree.Element) []StyleProperty {
	var props []StyleProperty
	for _, name := range styleProperties {
		value, priority, ok := s.resolveProperty(el, name, true)
		if !ok {
			continue
		}
		props = append(props, StyleProperty{Name: name, Value: value, Priority: priority})
	}
	return props
}

func (s *Scene) resolveProperty(el *etree.Element, name string, allowInherit bool) (string, string, bool) {
	if v, ok := s.AnimatedValueAt(el, name); ok {
		return v, "", true
	}

	if v, priority, ok := inlineDeclaration(el, name); ok {
		return v, priority, true
	}

	if v := el.SelectAttrValue(name, ""); v != "" {
		return v, "", true
	}

	if allowInherit && inheritedProperties[name] {
		if parent := el.Parent(); parent != nil {
			return s.resolveProperty(parent, name, true)
		}
	}
	return "", "", false
}

// inlineDeclaration parses the style attribute and finds the named
// declaration, reporting "important" priority separately from the value.
func inlineDeclaration(el *etree.Element, name string) (string, string, bool) {
	style := el.SelectAttrValue("style", "")
	if style == "" {
		return "", "", false
	}

	value, priority := "", ""
	found := false
	for _, decl := range strings.Split(style, ";") {
		colon := strings.IndexByte(decl, ':')
		if colon < 0 {
			continue
		}
		if strings.TrimSpace(decl[:colon]) != name {
			continue
		}
		v := strings.TrimSpace(decl[colon+1:])
		p := ""
		if strings.HasSuffix(v, "!important") {
			v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
			p = "important"
		}
		// Последнее объявление в списке побеждает.
		value, priority, found = v, p, true
	}
	return value, priority, found
}
