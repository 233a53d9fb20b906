package page

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// formValues collects what a browser would send when Enter is pressed in
// one of form's text inputs: successful controls plus the first submit
// button. overrides replace values by control name.
func formValues(form *html.Node, overrides map[string]string) url.Values {
	vals := url.Values{}
	submitted := false
	for _, n := range findAll(form, func(n *html.Node) bool {
		return n.DataAtom == atom.Input || n.DataAtom == atom.Select || n.DataAtom == atom.Textarea || n.DataAtom == atom.Button
	}) {
		name := attr(n, "name")
		if name == "" || hasAttr(n, "disabled") {
			continue
		}
		switch n.DataAtom {
		case atom.Input:
			switch strings.ToLower(attr(n, "type")) {
			case "submit", "image":
				if !submitted {
					vals.Set(name, attr(n, "value"))
					submitted = true
				}
			case "button", "reset", "file":
			case "checkbox", "radio":
				if hasAttr(n, "checked") {
					v := attr(n, "value")
					if v == "" {
						v = "on"
					}
					vals.Add(name, v)
				}
			default:
				vals.Set(name, attr(n, "value"))
			}
		case atom.Button:
			t := strings.ToLower(attr(n, "type"))
			if (t == "" || t == "submit") && !submitted {
				vals.Set(name, attr(n, "value"))
				submitted = true
			}
		case atom.Select:
			opts := findAll(n, isAtom(atom.Option))
			var chosen *html.Node
			for _, o := range opts {
				if hasAttr(o, "selected") {
					chosen = o
					break
				}
			}
			if chosen == nil && len(opts) > 0 {
				chosen = opts[0]
			}
			if chosen != nil {
				v := attr(chosen, "value")
				if !hasAttr(chosen, "value") {
					v = strings.TrimSpace(text(chosen))
				}
				vals.Set(name, v)
			}
		case atom.Textarea:
			vals.Set(name, text(n))
		}
	}
	for k, v := range overrides {
		vals.Set(k, v)
	}
	return vals
}
