package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Matrix is a 2D affine transform in SVG component order:
//
//	| A C E |
//	| B D F |
//
// The zero value is not the identity; use Identity().
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Mul returns m × n (n applied first, then m).
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Inverse returns the inverse transform. The second result is false for a
// degenerate (non-invertible) matrix.
func (m Matrix) Inverse() (Matrix, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity(), false
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}, true
}

// String serializes the matrix in the fixed SVG attribute form
// "matrix(a b c d e f)".
func (m Matrix) String() string {
	return fmt.Sprintf("matrix(%s %s %s %s %s %s)",
		fmtNum(m.A), fmtNum(m.B), fmtNum(m.C), fmtNum(m.D), fmtNum(m.E), fmtNum(m.F))
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Translate returns a translation transform.
func Translate(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Rotate returns a rotation (degrees) around the point (cx, cy).
func Rotate(deg, cx, cy float64) Matrix {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	rot := Matrix{A: cos, B: sin, C: -sin, D: cos}
	if cx == 0 && cy == 0 {
		return rot
	}
	return Translate(cx, cy).Mul(rot).Mul(Translate(-cx, -cy))
}

// SkewX returns a horizontal skew (degrees).
func SkewX(deg float64) Matrix {
	return Matrix{A: 1, C: math.Tan(deg * math.Pi / 180), D: 1}
}

// SkewY returns a vertical skew (degrees).
func SkewY(deg float64) Matrix {
	return Matrix{A: 1, B: math.Tan(deg * math.Pi / 180), D: 1}
}

// ParseTransform parses an SVG transform list ("translate(10 20) rotate(45)")
// into a single concatenated matrix. An empty string yields the identity.
func ParseTransform(s string) (Matrix, error) {
	m := Identity()
	s = strings.TrimSpace(s)
	if s == "" {
		return m, nil
	}

	rest := s
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		clos := strings.IndexByte(rest, ')')
		if open < 0 || clos < open {
			return Identity(), fmt.Errorf("некорректный список трансформаций: %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := parseNumberList(rest[open+1 : clos])
		if err != nil {
			return Identity(), fmt.Errorf("некорректные аргументы %s: %w", name, err)
		}

		op, err := transformOp(name, args)
		if err != nil {
			return Identity(), err
		}
		m = m.Mul(op)

		rest = strings.TrimLeft(rest[clos+1:], " \t\r\n,")
	}
	return m, nil
}

func transformOp(name string, args []float64) (Matrix, error) {
	switch name {
	case "matrix":
		if len(args) != 6 {
			return Identity(), fmt.Errorf("matrix требует 6 компонентов, получено %d", len(args))
		}
		return Matrix{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}, nil
	case "translate":
		switch len(args) {
		case 1:
			return Translate(args[0], 0), nil
		case 2:
			return Translate(args[0], args[1]), nil
		}
	case "scale":
		switch len(args) {
		case 1:
			return Scale(args[0], args[0]), nil
		case 2:
			return Scale(args[0], args[1]), nil
		}
	case "rotate":
		switch len(args) {
		case 1:
			return Rotate(args[0], 0, 0), nil
		case 3:
			return Rotate(args[0], args[1], args[2]), nil
		}
	case "skewX":
		if len(args) == 1 {
			return SkewX(args[0]), nil
		}
	case "skewY":
		if len(args) == 1 {
			return SkewY(args[0]), nil
		}
	default:
		return Identity(), fmt.Errorf("неизвестная трансформация %q", name)
	}
	return Identity(), fmt.Errorf("неверное число аргументов для %s: %d", name, len(args))
}

// parseNumberList splits a whitespace/comma separated SVG number list.
func parseNumberList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	nums := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		nums = append(nums, v)
	}
	return nums, nil
}
