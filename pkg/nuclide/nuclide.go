// Package nuclide parses isotope names such as "Co60", "RE186M" or "Tc 99m"
// and normalises them to one canonical spelling.
package nuclide

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidName is returned for strings that are not isotope names.
var ErrInvalidName = errors.New("nuclide: invalid isotope name")

// Nuclide is an isotope: element symbol, mass number and an optional isomer
// state letter ('m', 'n', ...).
type Nuclide struct {
	Element string
	A       int
	Isomer  string
}

// Parse reads an isotope name. Case and inner spaces are ignored, so
// "Re186m", "RE186M" and "RE 186M" are the same nuclide.
func Parse(name string) (Nuclide, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	i := 0
	for i < len(s) && unicode.IsLetter(rune(s[i])) {
		i++
	}
	j := i
	for j < len(s) && unicode.IsDigit(rune(s[j])) {
		j++
	}
	if i == 0 || i > 2 || j == i {
		return Nuclide{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	isomer := s[j:]
	if len(isomer) > 1 || (isomer != "" && !unicode.IsLetter(rune(isomer[0]))) {
		return Nuclide{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	a, err := strconv.Atoi(s[i:j])
	if err != nil || a <= 0 {
		return Nuclide{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return Nuclide{
		Element: strings.ToUpper(s[:1]) + strings.ToLower(s[1:i]),
		A:       a,
		Isomer:  strings.ToLower(isomer),
	}, nil
}

// String returns the canonical name, e.g. "Re186m".
func (n Nuclide) String() string {
	return n.Element + strconv.Itoa(n.A) + n.Isomer
}

// Normalize returns the canonical spelling of an isotope name.
func Normalize(name string) (string, error) {
	n, err := Parse(name)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// NormalizeElement returns the canonical spelling of an element symbol.
func NormalizeElement(symbol string) (string, error) {
	s := strings.TrimSpace(symbol)
	if len(s) == 0 || len(s) > 2 {
		return "", fmt.Errorf("%w: element %q", ErrInvalidName, symbol)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: element %q", ErrInvalidName, symbol)
		}
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:]), nil
}
