package httpx

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/AngelCh415/yukti/internal/forecast"
	"github.com/AngelCh415/yukti/internal/metrics"
)

func scale(v, min, max, a, b float64) float64 {
	if max == min {
		return (a + b) / 2
	}
	return a + (v-min)*(b-a)/(max-min)
}

func path(vals []float64, offset, n int, min, max, w, h float64) string {
	pts := make([]string, 0, len(vals))
	for i, v := range vals {
		x := float64(offset+i) * (w / math.Max(1, float64(n-1)))
		y := h - scale(v, min, max, 6, h-6)
		pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	return "M " + strings.Join(pts, " L ")
}

func bounds(series ...[]float64) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			min, max = math.Min(min, v), math.Max(max, v)
		}
	}
	return min, max
}

func spark(pts []metrics.Point) template.HTML {
	if len(pts) == 0 {
		return template.HTML("<p class='muted'>No data.</p>")
	}
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.Value
	}
	min, max := bounds(vals)
	w, h := 240.0, 48.0
	return template.HTML(fmt.Sprintf(`<svg viewBox="0 0 %.0f %.0f"><path d="%s" fill="none" stroke="#7aa2ff" stroke-width="2"/></svg>`,
		w, h, path(vals, 0, len(vals), min, max, w, h)))
}

func values(ps []forecast.Point) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

// chart draws history, the fitted line and the projection on one axis.
func chart(res *forecast.Result) template.HTML {
	if res == nil || len(res.History) == 0 {
		return template.HTML("<p class='muted'>No data.</p>")
	}
	hist, fitted, trend := values(res.History), values(res.Fitted), values(res.Trend)
	future := values(res.Future)
	min, max := bounds(hist, fitted)
	n := len(fitted)
	w, h := 600.0, 180.0

	var b strings.Builder
	fmt.Fprintf(&b, `<svg viewBox="0 0 %.0f %.0f">`, w, h)
	for i, v := range hist {
		x := float64(i) * (w / math.Max(1, float64(n-1)))
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="2" fill="rgba(255,255,255,0.4)"/>`, x, h-scale(v, min, max, 6, h-6))
	}
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#22305f" stroke-width="1"/>`, path(trend, 0, n, min, max, w, h))
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#7aa2ff" stroke-width="2"/>`, path(fitted[:len(hist)], 0, n, min, max, w, h))
	if len(future) > 0 {
		fut := append([]float64{fitted[len(hist)-1]}, future...)
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#ffb86b" stroke-width="2" stroke-dasharray="5,4"/>`, path(fut, len(hist)-1, n, min, max, w, h))
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// cityMap places each city bubble by longitude/latitude, green when ROAS meets target.
func cityMap(pts []metrics.CityPoint) template.HTML {
	var placed []metrics.CityPoint
	for _, p := range pts {
		if p.Coordinates != nil {
			placed = append(placed, p)
		}
	}
	if len(placed) == 0 {
		return template.HTML("<p class='muted'>No mappable cities.</p>")
	}
	w, h := 360.0, 400.0
	var b strings.Builder
	fmt.Fprintf(&b, `<svg viewBox="0 0 %.0f %.0f">`, w, h)
	for _, p := range placed {
		x := scale(p.Coordinates.Lon, 68, 90, 20, w-20)
		y := h - scale(p.Coordinates.Lat, 8, 32, 20, h-20)
		fill := "#3ddc97"
		if p.Performance < 1 {
			fill = "#ff6b6b"
		}
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" fill-opacity="0.6"><title>%s: %.2f of target, %.0f conversions</title></circle>`,
			x, y, p.BubbleSize/2, fill, template.HTMLEscapeString(p.City), p.Performance, p.Conversions)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" fill="#e8ecff" font-size="11">%s</text>`, x+p.BubbleSize/2+2, y+4, template.HTMLEscapeString(p.City))
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// money formats an amount with thousands separators and no decimals.
func money(f float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(f))
	var b strings.Builder
	if f < 0 {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return "₹" + b.String()
}
