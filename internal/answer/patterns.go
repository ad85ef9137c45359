package answer

import (
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"surveyhub/internal/schema"

	ptime "github.com/yaa110/go-persian-calendar"
)

var (
	numericRe        = regexp.MustCompile(`^[0-9]+$`)
	mobileNumberRe   = regexp.MustCompile(`^(\+98|0)?9[0-9]{9}$`)
	phoneNumberRe    = regexp.MustCompile(`^0[0-9]{10}$`)
	persianLettersRe = regexp.MustCompile("^[؀-ۿ‌\\s]+$")
	englishLettersRe = regexp.MustCompile(`^[A-Za-z\s]+$`)
	dateSeparatorRe  = regexp.MustCompile(`[-/]`)
)

// knownTLDs is the allow-list for link_field suffixes; bare domains without a
// scheme are accepted as long as the suffix is recognized.
var knownTLDs = map[string]bool{
	"com": true, "net": true, "org": true, "ir": true, "io": true,
	"co": true, "me": true, "info": true, "biz": true, "app": true,
	"dev": true, "edu": true, "gov": true, "ac": true, "xyz": true,
}

// checkPattern validates a text answer against its question's pattern tag.
// An empty message means the value passed.
func checkPattern(p schema.Pattern, value string) string {
	switch p {
	case "", schema.PatternFree:
		return ""
	case schema.PatternNumeric:
		if !numericRe.MatchString(value) {
			return "value must contain digits only"
		}
	case schema.PatternMobileNumber:
		if !mobileNumberRe.MatchString(value) {
			return "value is not a valid mobile number"
		}
	case schema.PatternPhoneNumber:
		if !phoneNumberRe.MatchString(value) {
			return "value is not a valid phone number"
		}
	case schema.PatternPersianLetters:
		if !persianLettersRe.MatchString(value) {
			return "value must contain Persian letters only"
		}
	case schema.PatternEnglishLetters:
		if !englishLettersRe.MatchString(value) {
			return "value must contain English letters only"
		}
	case schema.PatternGeorgianDate:
		if !validGregorianDate(value) {
			return "value is not a valid date"
		}
	case schema.PatternJalaliDate:
		if !validJalaliDate(value) {
			return "value is not a valid Jalali date"
		}
	default:
		panic(&schema.SchemaError{Tag: string(p), Reason: "unknown text pattern"})
	}
	return ""
}

func validGregorianDate(value string) bool {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// validJalaliDate parses y/m/d digits and round-trips them through the
// Persian calendar; ptime normalizes out-of-range components, so a changed
// component means the input was not a real date.
func validJalaliDate(value string) bool {
	parts := dateSeparatorRe.Split(strings.TrimSpace(value), -1)
	if len(parts) != 3 {
		return false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	pt := ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, ptime.Iran())
	return pt.Year() == year && int(pt.Month()) == month && pt.Day() == day
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	// Reject the name-addr form; only a bare address is a valid answer.
	return addr.Address == strings.TrimSpace(value)
}

// validLink accepts http(s) URLs and bare domains, requiring a known
// top-level-domain suffix in either case.
func validLink(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	host := value
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		host = u.Hostname()
	} else {
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
	}
	host = strings.TrimSuffix(host, ".")
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
	}
	return knownTLDs[strings.ToLower(labels[len(labels)-1])]
}
