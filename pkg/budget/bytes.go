package budget

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/matzehuels/photoaffix/pkg/errors"
)

var byteUnits = map[string]int64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gb":  1 << 30,
	"gib": 1 << 30,
}

// ParseBytes parses sizes such as "512MiB", "1.5 GB" or "1048576".
// Units are binary regardless of spelling.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' })
	num, unit := s, ""
	if i >= 0 {
		num, unit = s[:i], strings.ToLower(strings.TrimSpace(s[i:]))
	}

	mult, ok := byteUnits[unit]
	if !ok || num == "" {
		return 0, errors.New(errors.ErrCodeValidation, "invalid size %q", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, errors.New(errors.ErrCodeValidation, "invalid size %q", s)
	}
	return int64(v * float64(mult)), nil
}
