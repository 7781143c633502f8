package structured

import "strings"

// ExtractJSON returns the JSON payload embedded in a model response. A fenced
// code block wins over bare text. Inside the chosen text the first balanced
// object or array is returned.
func ExtractJSON(text string) (string, bool) {
	if body, ok := fencedBlock(text); ok {
		if span, ok := balancedSpan(body); ok {
			return span, true
		}
	}
	return balancedSpan(text)
}

func fencedBlock(text string) (string, bool) {
	const fence = "```"

	start := strings.Index(text, fence+"json")
	skip := len(fence) + len("json")
	if start < 0 {
		start = strings.Index(text, fence)
		skip = len(fence)
	}
	if start < 0 {
		return "", false
	}

	rest := text[start+skip:]
	end := strings.Index(rest, fence)
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// balancedSpan scans for the first '{' or '[' that opens a balanced span,
// skipping brackets that appear inside JSON strings.
func balancedSpan(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		if end, ok := matchFrom(text, i); ok {
			return text[i : end+1], true
		}
	}
	return "", false
}

func matchFrom(text string, start int) (int, bool) {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
