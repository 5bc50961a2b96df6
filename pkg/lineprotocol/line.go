// Package lineprotocol encodes measurements in the InfluxDB line protocol:
//
//	measurement,tag1=v1,tag2=v2 field1=1i,field2=0.5 1700000000000
//
// Tags and fields keep the order in which they are added. Integer fields
// carry the "i" suffix so the store does not coerce them to floats.
package lineprotocol

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var tagEscaper = strings.NewReplacer(
	`,`, `\,`,
	`=`, `\=`,
	` `, `\ `,
)

var measurementEscaper = strings.NewReplacer(
	`,`, `\,`,
	` `, `\ `,
)

// Line accumulates the tag set and field set of a single measurement.
// The zero value is not usable; use New.
type Line struct {
	measurement string
	tags        strings.Builder
	fields      strings.Builder
}

// New starts a line for the given measurement name.
func New(measurement string) *Line {
	return &Line{measurement: measurementEscaper.Replace(measurement)}
}

// Tag appends an identity attribute. Keys and values are escaped. A tag
// with an empty key or value is left out, the store rejects lines that
// carry one.
func (l *Line) Tag(key, value string) *Line {
	if key == "" || value == "" {
		return l
	}
	l.tags.WriteByte(',')
	l.tags.WriteString(EscapeTag(key))
	l.tags.WriteByte('=')
	l.tags.WriteString(EscapeTag(value))
	return l
}

// Int appends a signed integer field.
func (l *Line) Int(key string, v int64) *Line {
	l.field(key)
	l.fields.WriteString(strconv.FormatInt(v, 10))
	l.fields.WriteByte('i')
	return l
}

// Uint appends an unsigned counter as an integer field. Values above the
// int64 range are clamped, the store has no room for them.
func (l *Line) Uint(key string, v uint64) *Line {
	if v > math.MaxInt64 {
		v = math.MaxInt64
	}
	l.field(key)
	l.fields.WriteString(strconv.FormatUint(v, 10))
	l.fields.WriteByte('i')
	return l
}

// Float appends a float field.
func (l *Line) Float(key string, v float64) *Line {
	l.field(key)
	l.fields.WriteString(FormatFloat(v))
	return l
}

func (l *Line) field(key string) {
	if l.fields.Len() > 0 {
		l.fields.WriteByte(',')
	}
	l.fields.WriteString(EscapeTag(key))
	l.fields.WriteByte('=')
}

// Encode renders the line with a millisecond precision timestamp.
func (l *Line) Encode(ts time.Time) string {
	var b strings.Builder
	b.Grow(len(l.measurement) + l.tags.Len() + l.fields.Len() + 16)
	b.WriteString(l.measurement)
	b.WriteString(l.tags.String())
	b.WriteByte(' ')
	b.WriteString(l.fields.String())
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(ts.UnixMilli(), 10))
	return b.String()
}

// EscapeTag escapes the characters the line protocol reserves in tag keys,
// tag values and field keys.
func EscapeTag(s string) string {
	return tagEscaper.Replace(s)
}

// FormatFloat formats v so that it always reads back as a float: integral
// values keep a trailing ".0" and NaN or infinities are written as 0.0,
// which the store would otherwise reject.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
