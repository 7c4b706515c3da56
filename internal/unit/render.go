package unit

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Unit file section names, in the order they are rendered.
const (
	sectionUnit    = "Unit"
	sectionService = "Service"
	sectionTimer   = "Timer"
	sectionInstall = "Install"
)

func init() {
	// The manager expects Key=Value lines with no surrounding whitespace.
	ini.PrettyFormat = false
}

// section is one named block of a unit file.
type section struct {
	name       string
	directives Set
}

// render serializes sections to unit file text using go-ini. Empty sections
// are skipped. Directives sharing a key become repeated lines via shadow
// values, sorted within the key.
func render(sections []section) ([]byte, error) {
	file := ini.Empty(ini.LoadOptions{AllowShadows: true})

	for _, sec := range sections {
		if len(sec.directives) == 0 {
			continue
		}
		iniSection, err := file.NewSection(sec.name)
		if err != nil {
			return nil, fmt.Errorf("creating section %s: %w", sec.name, err)
		}
		for _, directive := range sec.directives.Sorted() {
			key, value, err := splitDirective(directive)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", sec.name, err)
			}
			if existing, _ := iniSection.GetKey(key); existing != nil {
				if err := existing.AddShadow(value); err != nil {
					return nil, fmt.Errorf("section %s: repeating %s: %w", sec.name, key, err)
				}
				continue
			}
			if _, err := iniSection.NewKey(key, value); err != nil {
				return nil, fmt.Errorf("section %s: adding %s: %w", sec.name, key, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitDirective validates a "Key=Value" directive and splits it. Newlines
// and backquotes are rejected because the INI writer would quote values
// containing them, which the manager's unit parser does not understand.
func splitDirective(directive string) (key, value string, err error) {
	key, value, ok := strings.Cut(directive, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("malformed directive %q", directive)
	}
	if strings.ContainsAny(value, "\n\r") {
		return "", "", fmt.Errorf("directive %s must not contain newlines", key)
	}
	if strings.Contains(value, "`") {
		return "", "", fmt.Errorf("directive %s must not contain backquotes", key)
	}
	return key, value, nil
}
