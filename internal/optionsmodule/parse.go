package optionsmodule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/offloadkit/zhc/internal/abival"
	"github.com/offloadkit/zhc/internal/mangle"
)

// Module is a parsed options module.
type Module struct {
	Side     Side
	Platform string
	Kernels  map[string][]abival.Overload
	Order    []string
}

// Parse reads back a module rendered by Render. It is a small
// hand-written line scanner, in the style of internal/mangle's
// decoder and std/compiler/parser.go's token cursor, rather than a
// general-purpose parser generator.
func Parse(src string) (*Module, error) {
	lines := strings.Split(src, "\n")
	m := &Module{Kernels: make(map[string][]abival.Overload)}

	var currentKernel string
	inKernel := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "side = "):
			m.Side = Side(strings.TrimPrefix(line, "side = "))
		case strings.HasPrefix(line, "platform = "):
			m.Platform = strings.TrimPrefix(line, "platform = ")
		case strings.HasPrefix(line, "kernel "):
			if inKernel {
				return nil, fmt.Errorf("optionsmodule: line %d: nested kernel block", i+1)
			}
			name, err := unquote(strings.TrimSuffix(strings.TrimPrefix(line, "kernel "), " {"))
			if err != nil {
				return nil, fmt.Errorf("optionsmodule: line %d: %w", i+1, err)
			}
			currentKernel = name
			if _, exists := m.Kernels[name]; !exists {
				m.Order = append(m.Order, name)
			}
			inKernel = true
		case line == "}":
			if !inKernel {
				return nil, fmt.Errorf("optionsmodule: line %d: unmatched '}'", i+1)
			}
			inKernel = false
		case strings.HasPrefix(line, "overload "):
			if !inKernel {
				return nil, fmt.Errorf("optionsmodule: line %d: overload outside kernel block", i+1)
			}
			mangled, err := unquote(strings.TrimPrefix(line, "overload "))
			if err != nil {
				return nil, fmt.Errorf("optionsmodule: line %d: %w", i+1, err)
			}
			o, err := mangle.DemangleOverload(mangled)
			if err != nil {
				return nil, fmt.Errorf("optionsmodule: line %d: %w", i+1, err)
			}
			m.Kernels[currentKernel] = append(m.Kernels[currentKernel], o)
		default:
			return nil, fmt.Errorf("optionsmodule: line %d: unrecognized syntax %q", i+1, line)
		}
	}
	if inKernel {
		return nil, fmt.Errorf("optionsmodule: unterminated kernel block")
	}
	return m, nil
}

// unquote reads back one Go quoted literal, as Render writes it with
// %q, using strconv.Unquote: escape sequences are decoded, and any
// literal strconv.Unquote rejects is an error.
func unquote(s string) (string, error) {
	v, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("invalid quoted string %q: %w", s, err)
	}
	return v, nil
}
