package factor

import "github.com/Genius-apple/open-alpha/internal/dataset"

// value is the runtime result of an expression node: a series aligned
// to the frame index, or a scalar awaiting broadcast.
type value struct {
	series dataset.Series
	scalar float64
}

func scalarValue(v float64) value {
	return value{scalar: v}
}

func seriesValue(s dataset.Series) value {
	return value{series: s}
}

func (v value) isSeries() bool {
	return v.series != nil
}

// at returns the element for row i, broadcasting scalars.
func (v value) at(i int) float64 {
	if v.series != nil {
		return v.series[i]
	}
	return v.scalar
}

// materialize returns the value as a series of length n.
func (v value) materialize(n int) dataset.Series {
	if v.series != nil {
		return v.series
	}
	out := make(dataset.Series, n)
	for i := range out {
		out[i] = v.scalar
	}
	return out
}

// apply1 maps f over a value, preserving its shape.
func apply1(v value, f func(float64) float64) value {
	if !v.isSeries() {
		return scalarValue(f(v.scalar))
	}
	out := make(dataset.Series, len(v.series))
	for i, x := range v.series {
		out[i] = f(x)
	}
	return seriesValue(out)
}

// apply2 maps f over two values elementwise with scalar broadcast.
// n is the frame length used when both operands are scalar.
func apply2(a, b value, n int, f func(x, y float64) float64) value {
	if !a.isSeries() && !b.isSeries() {
		return scalarValue(f(a.scalar, b.scalar))
	}
	if a.isSeries() {
		n = len(a.series)
	} else {
		n = len(b.series)
	}
	out := make(dataset.Series, n)
	for i := range out {
		out[i] = f(a.at(i), b.at(i))
	}
	return seriesValue(out)
}
