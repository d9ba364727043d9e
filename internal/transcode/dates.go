package transcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultDateFormat renders reference table dates as "2006-01-02 15:04:05".
const DefaultDateFormat = "%Y-%m-%d %H:%M:%S"

var strftime = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// Layout translates a strftime-style format into a Go time layout. A format
// without any '%' is taken to be a Go layout already.
func Layout(format string) (string, error) {
	if format == "" {
		format = DefaultDateFormat
	}
	if !strings.Contains(format, "%") {
		return format, nil
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("date format %q ends with a lone %%", format)
		}
		i++
		d := format[i]
		if d == 'f' {
			// Go only accepts fractional seconds right after a separator.
			out := b.String()
			if !strings.HasSuffix(out, ".") && !strings.HasSuffix(out, ",") {
				return "", fmt.Errorf("date format %q: %%f must follow '.' or ','", format)
			}
			b.WriteString("000000")
			continue
		}
		tok, ok := strftime[d]
		if !ok {
			return "", fmt.Errorf("date format %q: unsupported directive %%%c", format, d)
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}

// DateCodec converts between epoch milliseconds, the native DATE encoding,
// and formatted text.
type DateCodec struct {
	Layout   string
	Location *time.Location
}

// NewDateCodec builds a codec for a strftime-style format. A nil location
// means time.Local.
func NewDateCodec(format string, loc *time.Location) (DateCodec, error) {
	layout, err := Layout(format)
	if err != nil {
		return DateCodec{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return DateCodec{Layout: layout, Location: loc}, nil
}

func (c DateCodec) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c DateCodec) layout() string {
	if c.Layout == "" {
		l, _ := Layout(DefaultDateFormat)
		return l
	}
	return c.Layout
}

// Format renders an epoch-milliseconds value.
func (c DateCodec) Format(ms string) (string, error) {
	ms = strings.TrimSpace(ms)
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(ms, 64)
		if ferr != nil {
			return "", fmt.Errorf("not an epoch milliseconds value: %w", err)
		}
		n = int64(f)
	}
	return time.UnixMilli(n).In(c.loc()).Format(c.layout()), nil
}

// Parse reads formatted text back into an epoch-milliseconds string.
func (c DateCodec) Parse(s string) (string, error) {
	t, err := time.ParseInLocation(c.layout(), strings.TrimSpace(s), c.loc())
	if err != nil {
		return "", err
	}
	ms := int64(math.Round(float64(t.UnixMicro()) / 1000))
	return strconv.FormatInt(ms, 10), nil
}
