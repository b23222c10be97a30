package engine

import "strings"

var abbreviations = map[string]string{
	// Common nouns
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "hp": "phone", "ph": "phone",
	"biz": "business", "pwd": "password", "passwd": "password", "pw": "password",
	"img": "image", "url": "url", "ip": "ip", "zip": "zipcode", "post": "zipcode",
	"msg": "message", "txt": "text", "tit": "title", "subj": "subject",
	"usr": "user", "emp": "employee", "dept": "department", "grp": "group",
	"cat": "category", "loc": "location", "lat": "latitude", "lng": "longitude", "lon": "longitude",
	"st": "street", "dist": "district", "bal": "balance", "avg": "average",

	// Verbs and status
	"reg": "registered", "mod": "modified", "del": "deleted", "cre": "created",
	"upd": "updated", "yn": "yesno", "stat": "status", "sts": "status",
	"typ": "type", "val": "value", "ord": "order", "seq": "sequence",
	"is": "yesno", "use": "yesno", "flg": "flag",
}

// meaning expands a column name into lower-case words, decoding common
// abbreviations: "cust_tel_no" becomes "cust phone number", "NotesTxt"
// becomes "notes text".
func meaning(name string) string {
	var words []string
	for _, part := range splitWords(name) {
		if full, ok := abbreviations[part]; ok {
			part = full
		}
		words = append(words, part)
	}
	return strings.Join(words, " ")
}

// splitWords splits snake_case, kebab-case and CamelCase into lower-case parts.
func splitWords(name string) []string {
	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			continue
		case r >= 'A' && r <= 'Z' && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return parts
}

// hasWord reports whether any word of m starts or ends with one of words.
// Words of three letters or fewer must match exactly.
func hasWord(m string, words ...string) bool {
	for _, part := range strings.Fields(m) {
		for _, w := range words {
			if part == w {
				return true
			}
			if len(w) > 3 && (strings.HasPrefix(part, w) || strings.HasSuffix(part, w)) {
				return true
			}
		}
	}
	return false
}
