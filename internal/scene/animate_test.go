package scene

import (
	"math"
	"strconv"
	"testing"
)

func mustParse(t *testing.T, markup string) *Scene {
	t.Helper()
	sc, err := Parse(markup)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return sc
}

func TestAnimatedColorValue(t *testing.T) {
	sc := mustParse(t, animatedMarkup)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(0)
	v, ok := sc.AnimatedValueAt(rect, "fill")
	if !ok || v != "#000000" {
		t.Errorf("at 0ms: expected #000000, got %q (ok=%v)", v, ok)
	}

	sc.SetCurrentTime(500)
	v, ok = sc.AnimatedValueAt(rect, "fill")
	if !ok || v != "#808080" {
		t.Errorf("at 500ms: expected #808080, got %q (ok=%v)", v, ok)
	}

	// Без fill="freeze" драйвер за пределами своей длительности не активен.
	sc.SetCurrentTime(1500)
	if _, ok := sc.AnimatedValueAt(rect, "fill"); ok {
		t.Error("fill animation should be inactive past its duration")
	}
}

func TestAnimatedTransform(t *testing.T) {
	sc := mustParse(t, animatedMarkup)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(1000) // половина двухсекундного вращения
	m, ok := sc.TransformAnimAt(rect)
	if !ok {
		t.Fatal("expected an active transform animation at 1000ms")
	}
	if !matricesClose(m, Rotate(180, 50, 50)) {
		t.Errorf("at 1000ms: expected rotate(180, 50, 50), got %v", m)
	}

	// fill="freeze": за пределами длительности остаётся конечное значение.
	sc.SetCurrentTime(5000)
	m, ok = sc.TransformAnimAt(rect)
	if !ok {
		t.Fatal("frozen transform animation should stay active")
	}
	if !matricesClose(m, Rotate(360, 50, 50)) {
		t.Errorf("frozen value: expected rotate(360, 50, 50), got %v", m)
	}

	// Целевой элемент без драйверов вклада не даёт.
	circle := sc.Root().SelectElement("circle")
	if _, ok := sc.TransformAnimAt(circle); ok {
		t.Error("circle has no transform drivers")
	}
}

func TestAnimatedNumericValues(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <circle r="5">
	    <animate attributeName="r" values="5; 15; 10" dur="3s"/>
	  </circle>
	</svg>`)
	circle := sc.Root().SelectElement("circle")

	tests := []struct {
		timeMs   float64
		expected float64
	}{
		{0, 5},
		{750, 10},    // midpoint of the first segment
		{1500, 15},   // second value
		{2250, 12.5}, // midpoint of the second segment
	}

	for _, tt := range tests {
		sc.SetCurrentTime(tt.timeMs)
		v, ok := sc.AnimatedValueAt(circle, "r")
		if !ok {
			t.Fatalf("at %.0fms: animation inactive", tt.timeMs)
		}
		got := mustFloat(t, v)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("at %.0fms: expected r=%v, got %v", tt.timeMs, tt.expected, got)
		}
	}
}

func TestAnimatedValueWithKeyTimes(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <rect>
	    <animate attributeName="opacity" values="0; 1" keyTimes="0; 0.25" dur="4s" fill="freeze"/>
	  </rect>
	</svg>`)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(500) // u=0.125, середина сегмента [0, 0.25]
	v, ok := sc.AnimatedValueAt(rect, "opacity")
	if !ok || math.Abs(mustFloat(t, v)-0.5) > 1e-9 {
		t.Errorf("at 500ms: expected opacity 0.5, got %q", v)
	}

	sc.SetCurrentTime(2000) // после последнего keyTime
	v, ok = sc.AnimatedValueAt(rect, "opacity")
	if !ok || mustFloat(t, v) != 1 {
		t.Errorf("at 2000ms: expected opacity 1, got %q", v)
	}
}

func TestDiscreteCalcMode(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <rect>
	    <animate attributeName="display" values="inline; none" calcMode="discrete" dur="1s"/>
	  </rect>
	</svg>`)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(100)
	if v, _ := sc.AnimatedValueAt(rect, "display"); v != "inline" {
		t.Errorf("at 100ms: expected inline, got %q", v)
	}
	sc.SetCurrentTime(700)
	if v, _ := sc.AnimatedValueAt(rect, "display"); v != "none" {
		t.Errorf("at 700ms: expected none, got %q", v)
	}
}

func TestSetDriver(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <rect>
	    <set attributeName="fill" to="#ff0000" begin="1s"/>
	  </rect>
	</svg>`)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(500)
	if _, ok := sc.AnimatedValueAt(rect, "fill"); ok {
		t.Error("set should be inactive before its begin")
	}

	sc.SetCurrentTime(2000)
	v, ok := sc.AnimatedValueAt(rect, "fill")
	if !ok || v != "#ff0000" {
		t.Errorf("set without dur should hold its value indefinitely, got %q (ok=%v)", v, ok)
	}
}

func TestRepeatCount(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <circle>
	    <animate attributeName="r" from="0" to="10" dur="1s" repeatCount="2"/>
	  </circle>
	</svg>`)
	circle := sc.Root().SelectElement("circle")

	// Вторая итерация начинается заново.
	sc.SetCurrentTime(1500)
	v, ok := sc.AnimatedValueAt(circle, "r")
	if !ok || math.Abs(mustFloat(t, v)-5) > 1e-9 {
		t.Errorf("at 1500ms: expected r=5 in the second iteration, got %q", v)
	}

	sc.SetCurrentTime(2500)
	if _, ok := sc.AnimatedValueAt(circle, "r"); ok {
		t.Error("animation should be inactive after both iterations")
	}
}

func TestHrefTargeting(t *testing.T) {
	sc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg">
	  <rect id="target"/>
	  <animate href="#target" attributeName="opacity" from="0" to="1" dur="1s"/>
	</svg>`)
	rect := sc.Root().SelectElement("rect")

	sc.SetCurrentTime(500)
	v, ok := sc.AnimatedValueAt(rect, "opacity")
	if !ok || math.Abs(mustFloat(t, v)-0.5) > 1e-9 {
		t.Errorf("href-targeted animation not applied: got %q (ok=%v)", v, ok)
	}
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("value %q is not numeric", s)
	}
	return v
}
