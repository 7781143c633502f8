package extract

import "strings"

// echoes reports whether text is something the assistant said that the user
// did not repeat. Such text is the assistant's, not a fact about the user.
func echoes(text, user, assistant string) bool {
	if assistant == "" {
		return false
	}
	return strings.Contains(assistant, text) && !strings.Contains(user, text)
}

// filter drops empty candidates and assistant echoes.
func (c Candidates) filter(user, assistant string) Candidates {
	var out Candidates

	for _, a := range c.Attributes {
		a.Name = strings.TrimSpace(a.Name)
		a.Value = strings.TrimSpace(a.Value)
		if a.Name == "" || a.Value == "" || echoes(a.Value, user, assistant) {
			continue
		}
		out.Attributes = append(out.Attributes, a)
	}
	for _, m := range c.Memories {
		m.Content = strings.TrimSpace(m.Content)
		if m.Content == "" || echoes(m.Content, user, assistant) {
			continue
		}
		out.Memories = append(out.Memories, m)
	}
	for _, g := range c.Goals {
		g.Content = strings.TrimSpace(g.Content)
		if g.Content == "" || echoes(g.Content, user, assistant) {
			continue
		}
		out.Goals = append(out.Goals, g)
	}
	for _, r := range c.Requests {
		r.Content = strings.TrimSpace(r.Content)
		if r.Content == "" || echoes(r.Content, user, assistant) {
			continue
		}
		out.Requests = append(out.Requests, r)
	}

	return out
}
