package scene

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
)

// Animator holds the parsed, time-independent definition of one animation
// driver. Given a clock position it yields the instantaneous value the driver
// imposes on its target, which is what the snapshot captures.
type Animator struct {
	Target        *etree.Element
	Attribute     string
	TransformType string // непустой только для animateTransform/animateMotion
	IsSet         bool
	Additive      bool

	Values   []string
	KeyTimes []float64
	CalcMode string

	BeginMs     float64
	DurMs       float64
	RepeatCount float64 // +Inf для indefinite
	Freeze      bool
}

func (s *Scene) collectAnimators(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if DriverTags[child.Tag] {
			if a := s.parseAnimator(child, el); a != nil {
				s.animators = append(s.animators, a)
			}
			continue
		}
		s.collectAnimators(child)
	}
}

func (s *Scene) parseAnimator(drv, parent *etree.Element) *Animator {
	a := &Animator{
		Target:   parent,
		IsSet:    drv.Tag == "set",
		Additive: drv.SelectAttrValue("additive", "") == "sum",
		CalcMode: drv.SelectAttrValue("calcMode", "linear"),
		Freeze:   drv.SelectAttrValue("fill", "") == "freeze",
	}

	// Явное указание цели через href имеет приоритет над родителем.
	href := drv.SelectAttrValue("href", drv.SelectAttrValue("xlink:href", ""))
	if href != "" {
		id := strings.TrimPrefix(href, "#")
		if target := findByID(s.root, id); target != nil {
			a.Target = target
		}
	}

	switch drv.Tag {
	case "animateTransform":
		a.TransformType = drv.SelectAttrValue("type", "translate")
		a.Attribute = drv.SelectAttrValue("attributeName", "transform")
	case "animateMotion":
		a.TransformType = "motion"
	default:
		a.Attribute = drv.SelectAttrValue("attributeName", "")
		if a.Attribute == "" {
			return nil
		}
	}

	if values := drv.SelectAttrValue("values", ""); values != "" {
		for _, v := range strings.Split(values, ";") {
			a.Values = append(a.Values, strings.TrimSpace(v))
		}
	} else {
		from := strings.TrimSpace(drv.SelectAttrValue("from", ""))
		to := strings.TrimSpace(drv.SelectAttrValue("to", ""))
		by := strings.TrimSpace(drv.SelectAttrValue("by", ""))
		switch {
		case to != "" && from != "":
			a.Values = []string{from, to}
		case to != "":
			a.Values = []string{to}
		case by != "" && from != "":
			a.Values = []string{from, addNumberLists(from, by)}
		default:
			return nil
		}
	}

	if kt := drv.SelectAttrValue("keyTimes", ""); kt != "" {
		for _, v := range strings.Split(kt, ";") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				a.KeyTimes = nil
				break
			}
			a.KeyTimes = append(a.KeyTimes, f)
		}
	}

	// Событийные начала ("click" и т.п.) при сэмплировании не срабатывают —
	// такой драйвер просто не активен.
	begin := firstClockItem(drv.SelectAttrValue("begin", "0s"))
	beginMs, err := parseClock(begin)
	if err != nil {
		return nil
	}
	a.BeginMs = beginMs

	if dur := drv.SelectAttrValue("dur", ""); dur != "" && dur != "indefinite" {
		durMs, err := parseClock(dur)
		if err != nil || durMs <= 0 {
			return nil
		}
		a.DurMs = durMs
	}

	a.RepeatCount = 1
	switch rc := drv.SelectAttrValue("repeatCount", ""); rc {
	case "":
	case "indefinite":
		a.RepeatCount = math.Inf(1)
	default:
		if v, err := strconv.ParseFloat(rc, 64); err == nil && v > 0 {
			a.RepeatCount = v
		}
	}

	return a
}

// progressAt maps an absolute clock position to the [0,1] progress within the
// simple duration. Frozen animators report progress 1 past their end.
func (a *Animator) progressAt(tMs float64) (float64, bool) {
	local := tMs - a.BeginMs
	if local < 0 {
		return 0, false
	}
	if a.DurMs <= 0 {
		// <set> без dur действует от begin и до конца документа.
		if a.IsSet {
			return 1, true
		}
		return 0, false
	}

	total := a.DurMs * a.RepeatCount
	if local >= total {
		if a.Freeze {
			return 1, true
		}
		return 0, false
	}
	return math.Mod(local, a.DurMs) / a.DurMs, true
}

// ValueAt evaluates a non-transform driver at the given clock position.
func (a *Animator) ValueAt(tMs float64) (string, bool) {
	u, active := a.progressAt(tMs)
	if !active || len(a.Values) == 0 {
		return "", false
	}
	if len(a.Values) == 1 {
		return a.Values[0], true
	}

	if a.CalcMode == "discrete" {
		return a.Values[a.discreteIndex(u)], true
	}

	i, f := a.segment(u)
	return interpolateValue(a.Values[i], a.Values[i+1], a.eased(f)), true
}

// TransformValueAt evaluates an animated-transform driver into its
// instantaneous matrix at the given clock position.
func (a *Animator) TransformValueAt(tMs float64) (Matrix, bool) {
	u, active := a.progressAt(tMs)
	if !active || len(a.Values) == 0 {
		return Identity(), false
	}

	var args []float64
	if len(a.Values) == 1 || a.CalcMode == "discrete" {
		idx := 0
		if len(a.Values) > 1 {
			idx = a.discreteIndex(u)
		}
		parsed, err := parseNumberList(a.Values[idx])
		if err != nil {
			return Identity(), false
		}
		args = parsed
	} else {
		i, f := a.segment(u)
		from, errF := parseNumberList(a.Values[i])
		to, errT := parseNumberList(a.Values[i+1])
		if errF != nil || errT != nil || len(from) != len(to) {
			return Identity(), false
		}
		f = a.eased(f)
		args = make([]float64, len(from))
		for k := range from {
			args[k] = from[k] + (to[k]-from[k])*f
		}
	}

	return transformArgs(a.TransformType, args)
}

func transformArgs(kind string, args []float64) (Matrix, bool) {
	get := func(i int) float64 {
		if i < len(args) {
			return args[i]
		}
		return 0
	}
	switch kind {
	case "translate", "motion":
		if len(args) < 1 {
			return Identity(), false
		}
		return Translate(get(0), get(1)), true
	case "scale":
		if len(args) < 1 {
			return Identity(), false
		}
		sy := get(0)
		if len(args) > 1 {
			sy = get(1)
		}
		return Scale(get(0), sy), true
	case "rotate":
		if len(args) < 1 {
			return Identity(), false
		}
		return Rotate(get(0), get(1), get(2)), true
	case "skewX":
		return SkewX(get(0)), true
	case "skewY":
		return SkewY(get(0)), true
	}
	return Identity(), false
}

// segment locates the value pair surrounding progress u and the local
// fraction inside it, honoring keyTimes when supplied.
func (a *Animator) segment(u float64) (int, float64) {
	n := len(a.Values)
	if u >= 1 {
		return n - 2, 1
	}
	if len(a.KeyTimes) == n {
		for i := 0; i < n-1; i++ {
			t0, t1 := a.KeyTimes[i], a.KeyTimes[i+1]
			if u >= t0 && u < t1 {
				if t1 <= t0 {
					return i, 0
				}
				return i, (u - t0) / (t1 - t0)
			}
		}
		return n - 2, 1
	}
	scaled := u * float64(n-1)
	i := int(scaled)
	if i >= n-1 {
		return n - 2, 1
	}
	return i, scaled - float64(i)
}

func (a *Animator) discreteIndex(u float64) int {
	n := len(a.Values)
	if len(a.KeyTimes) == n {
		idx := 0
		for i := 0; i < n; i++ {
			if u >= a.KeyTimes[i] {
				idx = i
			}
		}
		return idx
	}
	idx := int(u * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func (a *Animator) eased(f float64) float64 {
	switch a.CalcMode {
	case "ease":
		return ease.InOutQuad(f)
	case "ease-in":
		return ease.InQuad(f)
	case "ease-out":
		return ease.OutQuad(f)
	case "ease-in-out":
		return ease.InOutCubic(f)
	case "spline":
		// Приближение типовых keySplines; точные сплайны не поддерживаются.
		return ease.InOutCubic(f)
	default: // linear, paced
		return ease.Linear(f)
	}
}

// interpolateValue blends two attribute values: numbers linearly, colors in
// RGB, equal-length number lists pairwise. Non-interpolable values fall back
// to a discrete switch.
func interpolateValue(from, to string, f float64) string {
	if fv, errF := strconv.ParseFloat(from, 64); errF == nil {
		if tv, errT := strconv.ParseFloat(to, 64); errT == nil {
			return fmtNum(fv + (tv-fv)*f)
		}
	}

	if fc, errF := colorful.Hex(normalizeHex(from)); errF == nil {
		if tc, errT := colorful.Hex(normalizeHex(to)); errT == nil {
			return fc.BlendRgb(tc, f).Hex()
		}
	}

	if fl, errF := parseNumberList(from); errF == nil && len(fl) > 1 {
		if tl, errT := parseNumberList(to); errT == nil && len(tl) == len(fl) {
			parts := make([]string, len(fl))
			for i := range fl {
				parts[i] = fmtNum(fl[i] + (tl[i]-fl[i])*f)
			}
			return strings.Join(parts, " ")
		}
	}

	if f < 0.5 {
		return from
	}
	return to
}

// normalizeHex expands #rgb to #rrggbb for colorful.Hex.
func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[0] == '#' {
		return "#" + strings.Repeat(string(s[1]), 2) +
			strings.Repeat(string(s[2]), 2) + strings.Repeat(string(s[3]), 2)
	}
	return s
}

// addNumberLists implements from+by for numeric values and number lists.
func addNumberLists(from, by string) string {
	fl, errF := parseNumberList(from)
	bl, errB := parseNumberList(by)
	if errF != nil || errB != nil || len(fl) != len(bl) {
		return by
	}
	parts := make([]string, len(fl))
	for i := range fl {
		parts[i] = fmtNum(fl[i] + bl[i])
	}
	return strings.Join(parts, " ")
}

func firstClockItem(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// parseClock parses a SMIL clock value ("2s", "250ms", "0:01.5", "1:02:03")
// into milliseconds.
func parseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		total := 0.0
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return 0, err
			}
			total = total*60 + v
		}
		return total * 1000, nil
	}

	switch {
	case strings.HasSuffix(s, "ms"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "ms"), 64)
		return v, err
	case strings.HasSuffix(s, "s"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		return v * 1000, err
	case strings.HasSuffix(s, "min"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "min"), 64)
		return v * 60000, err
	case strings.HasSuffix(s, "h"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "h"), 64)
		return v * 3600000, err
	default:
		// Число без единицы измерения — секунды.
		v, err := strconv.ParseFloat(s, 64)
		return v * 1000, err
	}
}

// TransformAnimAt returns the cumulative instantaneous transform contributed
// by active animated-transform drivers attached to el at the current clock
// position. The second result is false when no driver is active.
func (s *Scene) TransformAnimAt(el *etree.Element) (Matrix, bool) {
	m := Identity()
	found := false
	for _, a := range s.animators {
		if a.Target != el || a.TransformType == "" {
			continue
		}
		op, active := a.TransformValueAt(s.clockMs)
		if !active {
			continue
		}
		if found && !a.Additive {
			// Неаддитивный драйвер замещает накопленное значение.
			m = op
			continue
		}
		m = m.Mul(op)
		found = true
	}
	return m, found
}

// AnimatedValueAt returns the value an active non-transform driver imposes on
// the named attribute of el at the current clock position. With several
// active drivers the last one in document order wins.
func (s *Scene) AnimatedValueAt(el *etree.Element, name string) (string, bool) {
	val := ""
	found := false
	for _, a := range s.animators {
		if a.Target != el || a.TransformType != "" || a.Attribute != name {
			continue
		}
		if v, ok := a.ValueAt(s.clockMs); ok {
			val = v
			found = true
		}
	}
	return val, found
}
