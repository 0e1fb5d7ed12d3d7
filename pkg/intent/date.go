package intent

import (
	"fmt"
	"strconv"
)

// fixCompactDate rewrites an undelimited 8-digit date as DD/MM/YYYY. Both
// DDMMYYYY and YYYYMMDD are read; a reading whose year falls in 1900-2100
// wins, DDMMYYYY first. Anything else is returned unchanged.
func fixCompactDate(s string) string {
	if len(s) != 8 {
		return s
	}
	if _, err := strconv.Atoi(s); err != nil {
		return s
	}

	num := func(from, to int) int {
		n, _ := strconv.Atoi(s[from:to])
		return n
	}

	type reading struct{ d, m, y int }
	var valid []reading
	for _, r := range []reading{
		{num(0, 2), num(2, 4), num(4, 8)},
		{num(6, 8), num(4, 6), num(0, 4)},
	} {
		if validDayMonth(r.d, r.m) {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return s
	}

	pick := valid[0]
	for _, r := range valid {
		if plausibleYear(r.y) {
			pick = r
			break
		}
	}
	return fmt.Sprintf("%02d/%02d/%04d", pick.d, pick.m, pick.y)
}

func plausibleYear(y int) bool { return y >= 1900 && y <= 2100 }

func validDayMonth(d, m int) bool {
	return d >= 1 && d <= 31 && m >= 1 && m <= 12
}
