package grid

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberOptions controls decimal formatting.
type NumberOptions struct {
	MinFractionDigits int
	MaxFractionDigits int
	Symbol            string // Prefixed currency symbol, e.g. "$"
}

var (
	numberDefaults = NumberOptions{MaxFractionDigits: 6}
	moneyDefaults  = NumberOptions{MinFractionDigits: 2, MaxFractionDigits: 2, Symbol: "$"}
)

// Formatter renders cells for display in one locale. Formatters are
// memoized by locale and number formats by options, so FormatterFor is
// cheap to call on every render.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer

	mu      sync.Mutex
	numbers map[NumberOptions]func(float64) string
}

var formatters sync.Map // locale string -> *Formatter

// FormatterFor returns the formatter for a BCP 47 locale. Unknown locales
// fall back to American English.
func FormatterFor(locale string) *Formatter {
	if f, ok := formatters.Load(locale); ok {
		return f.(*Formatter)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	f, _ := formatters.LoadOrStore(locale, &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		numbers: make(map[NumberOptions]func(float64) string),
	})
	return f.(*Formatter)
}

// Tag returns the formatter's language.
func (f *Formatter) Tag() language.Tag { return f.tag }

// Number formats v with locale grouping and the given fraction digits.
func (f *Formatter) Number(v float64, opts NumberOptions) string {
	f.mu.Lock()
	fn, ok := f.numbers[opts]
	if !ok {
		fn = f.compile(opts)
		f.numbers[opts] = fn
	}
	f.mu.Unlock()
	return fn(v)
}

func (f *Formatter) compile(opts NumberOptions) func(float64) string {
	numOpts := []number.Option{
		number.MinFractionDigits(opts.MinFractionDigits),
		number.MaxFractionDigits(max(opts.MaxFractionDigits, opts.MinFractionDigits)),
	}
	p := f.printer
	return func(v float64) string {
		if opts.Symbol == "" {
			return p.Sprint(number.Decimal(v, numOpts...))
		}
		if v < 0 {
			return "-" + opts.Symbol + p.Sprint(number.Decimal(-v, numOpts...))
		}
		return opts.Symbol + p.Sprint(number.Decimal(v, numOpts...))
	}
}

// Format renders a cell as its column type. Null cells render empty and
// values that do not parse as their type render as their raw text.
func (f *Formatter) Format(c Cell, dt DataType) string {
	if c.IsNull() {
		return ""
	}
	switch dt {
	case TypeNumber:
		if v, ok := c.Float(); ok {
			return f.Number(v, numberDefaults)
		}
	case TypeMoney:
		if v, ok := c.Float(); ok {
			return f.Number(v, moneyDefaults)
		}
	case TypeDate:
		if d, ok := c.Date(); ok {
			return d.Format(time.DateOnly)
		}
	case TypeDateTime:
		if t, ok := c.Instant(); ok {
			return t.Format("2006-01-02 15:04")
		}
	case TypeBoolean:
		if b, ok := boolOf(c); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	}
	return c.Text()
}

func boolOf(c Cell) (bool, bool) {
	switch c.Kind() {
	case KindBool:
		return c.b, true
	case KindString:
		b, err := strconv.ParseBool(c.str)
		return b, err == nil
	}
	return false, false
}
