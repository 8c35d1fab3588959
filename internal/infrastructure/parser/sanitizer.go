package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

// DefaultEntities maps the named Greek-letter entities PubMed emits to their code points.
var DefaultEntities = map[string]int{
	"alpha": 945, "beta": 946, "gamma": 947, "delta": 948, "epsilon": 949,
	"zeta": 950, "eta": 951, "theta": 952, "iota": 953, "kappa": 954,
	"lambda": 955, "mu": 956, "nu": 957, "xi": 958, "omicron": 959,
	"pi": 960, "rho": 961, "sigma": 963, "tau": 964, "upsilon": 965,
	"phi": 966, "chi": 967, "psi": 968, "omega": 969,
	"Alpha": 913, "Beta": 914, "Gamma": 915, "Delta": 916, "Epsilon": 917,
	"Zeta": 918, "Eta": 919, "Theta": 920, "Iota": 921, "Kappa": 922,
	"Lambda": 923, "Mu": 924, "Nu": 925, "Xi": 926, "Omicron": 927,
	"Pi": 928, "Rho": 929, "Sigma": 931, "Tau": 932, "Upsilon": 933,
	"Phi": 934, "Chi": 935, "Psi": 936, "Omega": 937,
}

var xmlPredefined = map[string]bool{"amp": true, "lt": true, "gt": true, "quot": true, "apos": true}

var encodingDeclExpr = regexp.MustCompile(`(<\?xml[^>]*?encoding\s*=\s*)(["'])([A-Za-z0-9._:-]+)(["'])`)

// Sanitizer repairs markup defects so the document becomes well-formed.
type Sanitizer struct {
	entities map[string]int
}

// NewSanitizer builds a sanitizer over DefaultEntities extended by extra.
func NewSanitizer(extra map[string]int) *Sanitizer {
	entities := make(map[string]int, len(DefaultEntities)+len(extra))
	for name, cp := range DefaultEntities {
		entities[name] = cp
	}
	for name, cp := range extra {
		if name == "" || !isXMLChar(rune(cp)) || xmlPredefined[name] {
			continue
		}
		entities[name] = cp
	}
	return &Sanitizer{entities: entities}
}

// Sanitize applies, in order: control-character stripping, ampersand escaping,
// named-entity substitution and encoding normalization. It is idempotent.
func (s *Sanitizer) Sanitize(raw []byte) []byte {
	out := stripControl(raw)
	out = s.escapeAmpersands(out)
	out = s.replaceEntities(out)
	return normalizeEncoding(out)
}

// stripControl removes C0 control bytes other than tab, LF and CR.
func stripControl(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		out = append(out, b)
	}
	return out
}

// escapeAmpersands rewrites every '&' that does not start a predefined XML
// entity, a configured named entity or a numeric reference to a legal XML
// character.
func (s *Sanitizer) escapeAmpersands(in []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '&' {
			buf.WriteByte(in[i])
			continue
		}
		if s.referenceLen(in[i+1:]) > 0 {
			buf.WriteByte('&')
			continue
		}
		buf.WriteString("&amp;")
	}
	return buf.Bytes()
}

// referenceLen returns the length of a valid reference body ("name;", "#123;",
// "#x1F;") at the start of rest, or 0.
func (s *Sanitizer) referenceLen(rest []byte) int {
	end := bytes.IndexByte(rest, ';')
	if end <= 0 || end > 32 {
		return 0
	}
	body := string(rest[:end])

	if body[0] == '#' {
		digits := body[1:]
		base := 10
		if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
			digits = digits[1:]
			base = 16
		}
		if digits == "" {
			return 0
		}
		cp, err := strconv.ParseUint(digits, base, 32)
		if err != nil || !isXMLChar(rune(cp)) {
			return 0
		}
		return end + 1
	}

	if !isEntityName(body) {
		return 0
	}
	if xmlPredefined[body] {
		return end + 1
	}
	if _, ok := s.entities[body]; ok {
		return end + 1
	}
	return 0
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func isEntityName(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return name != ""
}

// replaceEntities swaps configured named entities for numeric references.
func (s *Sanitizer) replaceEntities(in []byte) []byte {
	if bytes.IndexByte(in, '&') < 0 {
		return in
	}
	var buf bytes.Buffer
	buf.Grow(len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '&' {
			buf.WriteByte(in[i])
			continue
		}
		end := bytes.IndexByte(in[i+1:], ';')
		if end > 0 {
			if cp, ok := s.entities[string(in[i+1:i+1+end])]; ok {
				buf.WriteString("&#")
				buf.WriteString(strconv.Itoa(cp))
				buf.WriteByte(';')
				i += end + 1
				continue
			}
		}
		buf.WriteByte('&')
	}
	return buf.Bytes()
}

// normalizeEncoding decodes a declared non-UTF-8 charset, repairs invalid
// UTF-8, applies NFC and rewrites the XML declaration to UTF-8.
func normalizeEncoding(in []byte) []byte {
	in = bytes.TrimPrefix(in, []byte("\xef\xbb\xbf"))

	if m := encodingDeclExpr.FindSubmatch(in); m != nil {
		name := strings.ToLower(string(m[3]))
		if name != "utf-8" && name != "utf8" {
			if enc, err := htmlindex.Get(name); err == nil {
				if decoded, err := enc.NewDecoder().Bytes(in); err == nil {
					in = decoded
				}
			}
			in = encodingDeclExpr.ReplaceAll(in, []byte("${1}${2}UTF-8${4}"))
		}
	}

	in = bytes.ToValidUTF8(in, []byte("\uFFFD"))
	in = bytes.Map(func(r rune) rune {
		if r == 0xFFFE || r == 0xFFFF {
			return -1
		}
		return r
	}, in)
	return norm.NFC.Bytes(in)
}
