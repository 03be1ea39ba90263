package mailstore

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

type replyToAddress struct {
	Name    *string
	Address *string
}

type replyToEntry struct {
	EmailAddress json.RawMessage `json:"emailAddress"`
}

// parseReplyTo extracts the first reply-to name and address.
//
// The column holds a JSON list whose first entry has an "emailAddress" field. That
// field is either an object or a string encoding a flat {name, address} map, written
// as JSON or with single quotes. Anything else yields empty fields.
func parseReplyTo(raw string) replyToAddress {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return replyToAddress{}
	}
	var entries []replyToEntry
	if err := sonic.Unmarshal([]byte(raw), &entries); err != nil || len(entries) == 0 {
		return replyToAddress{}
	}
	fields, ok := decodeAddressField(entries[0].EmailAddress, 2)
	if !ok {
		return replyToAddress{}
	}
	return addressFromFields(fields)
}

func decodeAddressField(raw json.RawMessage, depth int) (map[string]string, bool) {
	if len(raw) == 0 || depth < 0 {
		return nil, false
	}
	switch raw[0] {
	case '{':
		var obj map[string]any
		if err := sonic.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		return flatStrings(obj)
	case '"':
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "\"") || strings.HasPrefix(s, "{\"") {
			return decodeAddressField(json.RawMessage(s), depth-1)
		}
		return parseLiteralMap(s)
	}
	return nil, false
}

func flatStrings(obj map[string]any) (map[string]string, bool) {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			return nil, false
		}
	}
	return out, true
}

func addressFromFields(fields map[string]string) replyToAddress {
	var out replyToAddress
	if name, ok := fields["name"]; ok && name != "" {
		out.Name = &name
	}
	if addr, ok := fields["address"]; ok && validAddress(addr) {
		out.Address = &addr
	}
	if out.Address == nil {
		return replyToAddress{}
	}
	return out
}

func validAddress(addr string) bool {
	at := strings.IndexByte(addr, '@')
	return at > 0 && at < len(addr)-1 && !strings.ContainsAny(addr, " \t\r\n<>")
}

// parseLiteralMap accepts exactly {'k': 'v', "k2": "v2"} with string keys and values.
func parseLiteralMap(s string) (map[string]string, bool) {
	p := literalParser{src: s}
	p.skipSpace()
	if !p.consume('{') {
		return nil, false
	}
	out := map[string]string{}
	p.skipSpace()
	if p.consume('}') {
		return out, p.atEnd()
	}
	for {
		p.skipSpace()
		key, ok := p.quoted()
		if !ok {
			return nil, false
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, false
		}
		p.skipSpace()
		if p.consumeWord("None") {
			p.skipSpace()
		} else {
			val, ok := p.quoted()
			if !ok {
				return nil, false
			}
			out[key] = val
			p.skipSpace()
		}
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			return out, p.atEnd()
		}
		return nil, false
	}
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *literalParser) consume(b byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) consumeWord(w string) bool {
	if strings.HasPrefix(p.src[p.pos:], w) {
		p.pos += len(w)
		return true
	}
	return false
}

func (p *literalParser) atEnd() bool {
	p.skipSpace()
	return p.pos == len(p.src)
}

func (p *literalParser) quoted() (string, bool) {
	if p.pos >= len(p.src) {
		return "", false
	}
	q := p.src[p.pos]
	if q != '\'' && q != '"' {
		return "", false
	}
	var b strings.Builder
	for i := p.pos + 1; i < len(p.src); i++ {
		c := p.src[i]
		switch {
		case c == '\\' && i+1 < len(p.src):
			next := p.src[i+1]
			switch next {
			case '\\', '\'', '"':
				b.WriteByte(next)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				return "", false
			}
			i++
		case c == q:
			p.pos = i + 1
			return b.String(), true
		case c == '\n':
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return "", false
}
