package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRecurrence — правило не парсится или не даёт occurrence в пределах Lookahead.
var ErrInvalidRecurrence = errors.New("invalid recurrence")

// Lookahead — горизонт поиска следующего occurrence.
// Защищает от бесконечного перебора для патологических правил.
const Lookahead = 10 * 365 * 24 * time.Hour

// probeYears — високосный и невисокосный год для проверки правила при парсинге.
var probeYears = []int{2012, 2018}

// probeAnchors возвращает якоря, на которых правило обязано давать occurrence.
// Для MONTHLY фаза зависит от месяца и года якоря, поэтому проверяются
// первое и последнее число каждого месяца обоих годов.
func probeAnchors(freq rrule.Frequency) []time.Time {
	if freq != rrule.MONTHLY {
		return []time.Time{time.Date(probeYears[0], time.January, 1, 0, 0, 0, 0, time.UTC)}
	}
	anchors := make([]time.Time, 0, len(probeYears)*24)
	for _, year := range probeYears {
		for m := time.January; m <= time.December; m++ {
			first := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
			anchors = append(anchors, first, first.AddDate(0, 1, -1))
		}
	}
	return anchors
}

// Rule — правило повторения.
type Rule struct {
	text string
	opt  rrule.ROption
}

// Parse разбирает строку вида "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE,FR".
// Префикс "RRULE:" допускается.
func Parse(s string) (Rule, error) {
	text := normalize(s)
	if text == "" {
		return Rule{}, fmt.Errorf("%w: empty rule", ErrInvalidRecurrence)
	}

	opt, err := rrule.StrToROption(text)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRecurrence, s, err)
	}

	if err := validate(text, opt); err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRecurrence, s, err)
	}

	r := Rule{text: text, opt: *opt}

	for _, anchor := range probeAnchors(opt.Freq) {
		if _, err := r.NextAfter(anchor, anchor); err != nil {
			return Rule{}, err
		}
	}

	return r, nil
}

// MustParse — Parse, паникующий при ошибке. Только для констант и тестов.
func MustParse(s string) Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "RRULE:")
	s = strings.Trim(s, "; ")
	return s
}

func validate(text string, opt *rrule.ROption) error {
	switch opt.Freq {
	case rrule.DAILY, rrule.WEEKLY, rrule.MONTHLY:
	default:
		return errors.New("FREQ must be DAILY, WEEKLY or MONTHLY")
	}
	// rrule-go подставляет 1 вместо INTERVAL=0, а текст правила сохраняется как есть
	if opt.Interval < 0 || (opt.Interval == 0 && hasPart(text, "INTERVAL")) {
		return errors.New("INTERVAL must be >= 1")
	}
	if opt.Count != 0 || !opt.Until.IsZero() {
		return errors.New("COUNT and UNTIL are not supported")
	}
	if len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return errors.New("time of day is taken from the anchor, BYHOUR/BYMINUTE/BYSECOND are not supported")
	}
	if len(opt.Bymonth) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Bysetpos) > 0 || len(opt.Byeaster) > 0 {
		return errors.New("only INTERVAL, BYDAY and BYMONTHDAY are supported")
	}
	if len(opt.Bymonthday) > 0 && opt.Freq != rrule.MONTHLY {
		return errors.New("BYMONTHDAY requires FREQ=MONTHLY")
	}
	for _, d := range opt.Bymonthday {
		if d == 0 || d > 31 || d < -31 {
			return fmt.Errorf("BYMONTHDAY out of range: %d", d)
		}
	}
	return nil
}

func hasPart(text, name string) bool {
	for _, part := range strings.Split(text, ";") {
		if k, _, _ := strings.Cut(part, "="); k == name {
			return true
		}
	}
	return false
}

// IsZero возвращает true для нераспарсенного правила.
func (r Rule) IsZero() bool {
	return r.text == ""
}

// String возвращает нормализованный текст правила (без префикса RRULE:).
func (r Rule) String() string {
	return r.text
}

// MarshalText реализует encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.text), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (r *Rule) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// build создаёт rrule с якорем anchor и ограничением until.
// Occurrences наследуют location и время суток якоря.
func (r Rule) build(anchor, until time.Time) (*rrule.RRule, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRecurrence)
	}
	opt := r.opt
	opt.Dtstart = anchor
	opt.Until = until

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRecurrence, r.text, err)
	}
	return rr, nil
}

func anchorOr(anchor, fallback time.Time) time.Time {
	if anchor.IsZero() {
		return fallback
	}
	return anchor
}

// NextAfter возвращает первый occurrence строго после date,
// с фазой от якоря anchor (нулевой anchor — сама date).
func (r Rule) NextAfter(date, anchor time.Time) (time.Time, error) {
	anchor = anchorOr(anchor, date)

	rr, err := r.build(anchor, date.Add(Lookahead))
	if err != nil {
		return time.Time{}, err
	}

	next := rr.After(date, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q: no occurrence after %s within lookahead",
			ErrInvalidRecurrence, r.text, date.Format(time.RFC3339))
	}
	return next, nil
}

// Between возвращает occurrences в диапазоне [from, to] включительно.
func (r Rule) Between(from, to, anchor time.Time) ([]time.Time, error) {
	anchor = anchorOr(anchor, from)

	rr, err := r.build(anchor, to)
	if err != nil {
		return nil, err
	}
	return rr.Between(from, to, true), nil
}
