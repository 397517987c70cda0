package valueobjects

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a content language variant. The zero value means "no locale".
type Locale struct {
	tag language.Tag
	set bool
}

// ParseLocale parses a BCP 47 tag. Java-style tags such as "de_DE" are
// accepted as well since they are common in stored content.
func ParseLocale(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locale{}, fmt.Errorf("locale cannot be empty")
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return Locale{}, fmt.Errorf("invalid locale %q: %w", s, err)
	}
	return Locale{tag: tag, set: true}, nil
}

// MustLocale is ParseLocale for literals
func MustLocale(s string) Locale {
	l, err := ParseLocale(s)
	if err != nil {
		panic(err)
	}
	return l
}

// OptionalLocale parses s and returns the zero Locale for empty or invalid input
func OptionalLocale(s string) Locale {
	l, err := ParseLocale(s)
	if err != nil {
		return Locale{}
	}
	return l
}

func (l Locale) String() string {
	if !l.set {
		return ""
	}
	return l.tag.String()
}

func (l Locale) Tag() language.Tag { return l.tag }

func (l Locale) IsZero() bool { return !l.set }

func (l Locale) Equals(other Locale) bool {
	return l.set == other.set && l.tag.String() == other.tag.String()
}

// MarshalText implements encoding.TextMarshaler
func (l Locale) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Locale) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*l = Locale{}
		return nil
	}
	parsed, err := ParseLocale(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LocaleList is an ordered list of locales
type LocaleList []Locale

// ParseLocaleList parses a comma separated list, skipping invalid entries
func ParseLocaleList(s string) LocaleList {
	var out LocaleList
	for _, part := range strings.Split(s, ",") {
		if l, err := ParseLocale(part); err == nil && !out.Contains(l) {
			out = append(out, l)
		}
	}
	return out
}

func (ll LocaleList) IndexOf(l Locale) int {
	for i, candidate := range ll {
		if candidate.Equals(l) {
			return i
		}
	}
	return -1
}

func (ll LocaleList) Contains(l Locale) bool { return ll.IndexOf(l) >= 0 }

// First returns the first locale or the zero Locale
func (ll LocaleList) First() Locale {
	if len(ll) == 0 {
		return Locale{}
	}
	return ll[0]
}

func (ll LocaleList) Strings() []string {
	out := make([]string, len(ll))
	for i, l := range ll {
		out[i] = l.String()
	}
	return out
}

// Without returns a copy of the list without l
func (ll LocaleList) Without(l Locale) LocaleList {
	out := make(LocaleList, 0, len(ll))
	for _, candidate := range ll {
		if !candidate.Equals(l) {
			out = append(out, candidate)
		}
	}
	return out
}
