// Package snapshot captures the fully-resolved style and transform state of a
// live animated scene at one clock instant and reapplies it onto a
// driver-stripped structural clone, so the clone rasterizes identically to
// the live state without any animation left in it.
package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/ivlev/svg2video/internal/scene"
)

// ErrShapeMismatch reports that the clone's child structure diverged from the
// extracted snapshot. The paired-tree walk relies on identical shape after
// driver stripping; a mismatch is a fatal integrity fault, never silently
// misaligned.
var ErrShapeMismatch = errors.New("структура клона не совпадает со снимком")

// Node mirrors one scene element (drivers excluded): resolved style triples,
// the isolated local transform (CTM) and the instantaneous animated
// transform, plus children in document order.
type Node struct {
	Props         []scene.StyleProperty
	CTM           *scene.Matrix
	TransformAnim *scene.Matrix
	Children      []*Node
}

// Extract walks the live scene from el and builds its snapshot tree at the
// scene's current clock position. Children whose tag is an animation driver
// are skipped entirely. Pure read: the live scene is not mutated.
func Extract(sc *scene.Scene, el *etree.Element) *Node {
	n := &Node{Props: sc.ResolvedStyleAt(el)}

	if m, ok := sc.TransformAnimAt(el); ok {
		n.TransformAnim = &m
	}

	// Локальный вклад узла: inverse(CTM родителя) × CTM узла. Для корня
	// родительской матрицы нет — компонент опускается.
	if parent := el.Parent(); parent != nil {
		parentCTM := sc.CTMToRoot(parent)
		if inv, ok := parentCTM.Inverse(); ok {
			ctm := inv.Mul(sc.CTMToRoot(el))
			n.CTM = &ctm
		}
	}

	for _, child := range el.ChildElements() {
		if scene.DriverTags[child.Tag] {
			continue
		}
		n.Children = append(n.Children, Extract(sc, child))
	}
	return n
}

// Apply writes the snapshot onto a driver-stripped clone rooted at el. The
// two trees are walked in parallel, index-aligned; both must have identical
// shape. Pure write onto the disposable clone.
func Apply(el *etree.Element, n *Node) error {
	m := scene.Identity()
	if n.CTM != nil {
		m = m.Mul(*n.CTM)
	}
	if n.TransformAnim != nil {
		m = m.Mul(*n.TransformAnim)
	}
	el.CreateAttr("transform", m.String())

	if len(n.Props) > 0 {
		el.CreateAttr("style", inlineStyle(n.Props))
	}

	children := el.ChildElements()
	if len(children) != len(n.Children) {
		return fmt.Errorf("%w: элемент <%s> имеет %d детей, в снимке %d",
			ErrShapeMismatch, el.Tag, len(children), len(n.Children))
	}
	for i := range children {
		if err := Apply(children[i], n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// inlineStyle serializes the captured triples back into an inline style
// attribute, preserving order and priority verbatim.
func inlineStyle(props []scene.StyleProperty) string {
	var sb strings.Builder
	for _, p := range props {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		sb.WriteString(p.Value)
		if p.Priority != "" {
			sb.WriteString(" !")
			sb.WriteString(p.Priority)
		}
		sb.WriteByte(';')
	}
	return sb.String()
}
