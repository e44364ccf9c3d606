// Package duration разбирает сроки команд вида "30m", "1d12h", "2w".
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid duration")
	ErrTooLong = errors.New("duration too long")
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
	Max  = 366 * Day
)

var units = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': Day,
	'w': Week,
}

// Parse принимает группы <число><единица> (s m h d w) или голое число минут.
// Пустой, нулевой и слишком длинный срок это ошибка, а не "навсегда".
func Parse(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d, err := bound(s, n, time.Minute)
		if err == nil && d == 0 {
			return 0, fmt.Errorf("%w: %q is zero", ErrInvalid, s)
		}
		return d, err
	}

	var total time.Duration
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i || j == len(s) {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		unit, ok := units[s[j]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalid, s[j], s)
		}
		n, err := strconv.ParseInt(s[i:j], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		d, err := bound(s, n, unit)
		if err != nil {
			return 0, err
		}
		total += d
		if total > Max {
			return 0, fmt.Errorf("%w: %q", ErrTooLong, s)
		}
		i = j + 1
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: %q is zero", ErrInvalid, s)
	}
	return total, nil
}

// bound нулевая группа допустима ("1h0m"), ноль проверяется по сумме.
func bound(s string, n int64, unit time.Duration) (time.Duration, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %q is not positive", ErrInvalid, s)
	}
	if n > int64(Max/unit) {
		return 0, fmt.Errorf("%w: %q", ErrTooLong, s)
	}
	return time.Duration(n) * unit, nil
}

// Format обратное Parse: 36h -> "1d12h", 90s -> "1m30s".
func Format(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	var b strings.Builder
	for _, u := range []struct {
		c byte
		d time.Duration
	}{{'w', Week}, {'d', Day}, {'h', time.Hour}, {'m', time.Minute}, {'s', time.Second}} {
		if n := d / u.d; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteByte(u.c)
			d -= n * u.d
		}
	}
	if b.Len() == 0 {
		return "0s"
	}
	return b.String()
}
