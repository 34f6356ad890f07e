package scene

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// DriverTags enumerates the SMIL elements that drive animation. They declare
// time-varying changes and are not visible shapes themselves; the sampler
// strips them from every clone before rasterization so a serialized snapshot
// cannot re-trigger its animations.
var DriverTags = map[string]bool{
	"animate":          true,
	"set":              true,
	"animateTransform": true,
	"animateMotion":    true,
	"animateColor":     true,
}

const svgNamespace = "http://www.w3.org/2000/svg"

const doctypePreamble = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
	`<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">` + "\n"

// Scene is a loaded animated SVG document with a controllable animation
// clock. The document tree is immutable for the lifetime of a job; only the
// clock position changes, and only the frame sampler changes it.
type Scene struct {
	doc       *etree.Document
	root      *etree.Element
	clockMs   float64
	paused    bool
	animators []*Animator
}

// Parse builds a Scene from raw SVG markup.
func Parse(markup string) (*Scene, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(markup); err != nil {
		return nil, fmt.Errorf("разбор SVG: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("документ не содержит корневого элемента svg")
	}
	if root.SelectAttrValue("xmlns", "") == "" {
		root.CreateAttr("xmlns", svgNamespace)
	}

	s := &Scene{doc: doc, root: root}
	s.collectAnimators(root)
	return s, nil
}

// Root returns the live document root.
func (s *Scene) Root() *etree.Element {
	return s.root
}

// PauseAnimations freezes the clock so seeking is the only way time moves.
func (s *Scene) PauseAnimations() {
	s.paused = true
}

// SetCurrentTime seeks the animation clock to an absolute position in
// milliseconds.
func (s *Scene) SetCurrentTime(ms float64) {
	s.clockMs = ms
}

// CurrentTime reports the clock position in milliseconds.
func (s *Scene) CurrentTime() float64 {
	return s.clockMs
}

// Dimensions reports the intrinsic width and height of the document, taken
// from the width/height attributes or, failing that, the viewBox.
func (s *Scene) Dimensions() (w, h float64, ok bool) {
	w = parseLength(s.root.SelectAttrValue("width", ""))
	h = parseLength(s.root.SelectAttrValue("height", ""))
	if w > 0 && h > 0 {
		return w, h, true
	}

	vb, err := parseNumberList(s.root.SelectAttrValue("viewBox", ""))
	if err == nil && len(vb) == 4 && vb[2] > 0 && vb[3] > 0 {
		return vb[2], vb[3], true
	}
	return 0, 0, false
}

// CloneStripped returns a deep structural copy of the document root with
// every animation-driver element removed. The live tree is not touched.
func (s *Scene) CloneStripped() *etree.Element {
	clone := s.root.Copy()
	stripDrivers(clone)
	return clone
}

func stripDrivers(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if DriverTags[child.Tag] {
			el.RemoveChild(child)
			continue
		}
		stripDrivers(child)
	}
}

// CTMToRoot returns the concatenated authored transform from the document
// root down to el. Animated contributions are deliberately excluded: the
// snapshot captures them separately and the applier composes the two, so
// including them here would apply every animation twice.
func (s *Scene) CTMToRoot(el *etree.Element) Matrix {
	var chain []*etree.Element
	for e := el; e != nil; e = e.Parent() {
		chain = append(chain, e)
	}

	m := Identity()
	for i := len(chain) - 1; i >= 0; i-- {
		m = m.Mul(localTransform(chain[i]))
	}
	return m
}

// localTransform is the node's authored transform attribute.
func localTransform(el *etree.Element) Matrix {
	attr := el.SelectAttrValue("transform", "")
	if attr == "" {
		return Identity()
	}
	parsed, err := ParseTransform(attr)
	if err != nil {
		return Identity()
	}
	return parsed
}

// SerializeStandalone renders an element as a self-contained SVG document
// string: XML declaration, doctype preamble, and all same-document URL
// fragment references rewritten to bare #fragment form so the markup resolves
// out-of-document.
func SerializeStandalone(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	body, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("сериализация кадра: %w", err)
	}
	return doctypePreamble + rewriteLocalRefs(body), nil
}

// url(file:///page.svg#grad) и url('doc.svg#grad') -> url(#grad)
var urlRefPattern = regexp.MustCompile(`url\((["']?)[^)#"']*#([^)"']+)(["']?)\)`)

func rewriteLocalRefs(markup string) string {
	return urlRefPattern.ReplaceAllString(markup, `url(${1}#${2}${3})`)
}

func findByID(el *etree.Element, id string) *etree.Element {
	if el.SelectAttrValue("id", "") == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// parseLength parses an SVG length, ignoring a trailing "px" unit. Other
// units are rejected (result 0).
func parseLength(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
