package mapping

import (
	"strings"
)

// FieldMapping maps an original header to its target field. A nil target
// means the header was explicitly marked as unmapped.
type FieldMapping map[string]*string

// Source returns the original header mapped to the given target field.
func (m FieldMapping) Source(target string) (string, bool) {
	for header, mapped := range m {
		if mapped != nil && *mapped == target {
			return header, true
		}
	}
	return "", false
}

// ParserConfig carries the section and value markers the parser scans for.
// Injected rather than hardcoded so alternate schemas/languages work without
// code edits.
type ParserConfig struct {
	SalesMarker    string
	CustomerMarker string
	SummaryMarker  string
	NoneMarker     string
	Separator      string
}

// DefaultParserConfig matches the mapping text produced by the providers in
// this package.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		SalesMarker:    "판매 시트",
		CustomerMarker: "고객 시트",
		SummaryMarker:  "최종 요약",
		NoneMarker:     "없음",
		Separator:      "→",
	}
}

// Parser extracts sales and customer field mappings from semi-structured
// mapping text.
type Parser struct {
	cfg ParserConfig
}

func NewParser(cfg ParserConfig) *Parser {
	if cfg.Separator == "" {
		cfg = DefaultParserConfig()
	}
	return &Parser{cfg: cfg}
}

type section int

const (
	sectionNone section = iota
	sectionSales
	sectionCustomer
)

// Parse scans the text line by line. Section marker lines switch the active
// section and are never mapping lines themselves; the summary marker ends
// parsing entirely. Malformed lines are skipped, never an error: text with no
// recognizable sections yields two empty mappings and the caller degrades to
// a no-op mapping.
func (p *Parser) Parse(text string) (sales FieldMapping, customer FieldMapping) {
	sales = FieldMapping{}
	customer = FieldMapping{}

	current := sectionNone
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, p.cfg.SummaryMarker) {
			break
		}
		if strings.Contains(line, p.cfg.SalesMarker) {
			current = sectionSales
			continue
		}
		if strings.Contains(line, p.cfg.CustomerMarker) {
			current = sectionCustomer
			continue
		}
		if current == sectionNone {
			continue
		}
		if strings.Count(line, p.cfg.Separator) != 1 {
			continue
		}
		header, target, ok := p.parseLine(line)
		if !ok {
			continue
		}
		switch current {
		case sectionSales:
			insert(sales, header, target)
		case sectionCustomer:
			insert(customer, header, target)
		}
	}
	return sales, customer
}

func (p *Parser) parseLine(line string) (header string, target *string, ok bool) {
	left, right, found := strings.Cut(line, p.cfg.Separator)
	if !found {
		return "", nil, false
	}
	header = strings.TrimSpace(stripListPrefix(left))
	if header == "" {
		return "", nil, false
	}
	right = strings.TrimSpace(right)
	if strings.Contains(right, p.cfg.NoneMarker) {
		return header, nil, true
	}
	if idx := strings.IndexAny(right, "(（"); idx >= 0 {
		right = strings.TrimSpace(right[:idx])
	}
	if right == "" {
		return "", nil, false
	}
	return header, &right, true
}

// insert enforces the at-most-one-source-per-target invariant with last-wins
// semantics: a later line claiming an already-taken target evicts the earlier
// header's entry.
func insert(m FieldMapping, header string, target *string) {
	if target != nil {
		for existing, mapped := range m {
			if mapped != nil && *mapped == *target && existing != header {
				delete(m, existing)
			}
		}
	}
	m[header] = target
}

// stripListPrefix drops bullet/numbering decoration models tend to emit.
func stripListPrefix(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*•")
	return s
}
