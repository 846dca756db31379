// Package extract materializes listing records from DOM handles. Every field is
// read independently; a failed lookup degrades that field to listing.Unknown.
package extract

import (
	"strings"

	"go-job-acquisition/internal/browser"
)

// Optional reads one value from a scope. ok=false means the value is unknown,
// whether the node was missing, detached, or empty.
type Optional func(q browser.Querier) (value string, ok bool)

// Text reads the trimmed text of the first node matching selector.
func Text(selector string) Optional {
	return func(q browser.Querier) (string, bool) {
		el, err := q.Query(selector)
		if err != nil {
			return "", false
		}
		return textOf(el)
	}
}

// TextAt reads the trimmed text of the index-th node matching selector.
func TextAt(selector string, index int) Optional {
	return func(q browser.Querier) (string, bool) {
		els, err := q.QueryAll(selector)
		if err != nil || index >= len(els) {
			return "", false
		}
		return textOf(els[index])
	}
}

// Attr reads an attribute of the first node matching selector.
func Attr(selector, name string) Optional {
	return func(q browser.Querier) (string, bool) {
		el, err := q.Query(selector)
		if err != nil {
			return "", false
		}
		v, ok, err := el.Attribute(name)
		if err != nil || !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}
}

// FirstOf tries each extractor in order and keeps the first known value.
func FirstOf(opts ...Optional) Optional {
	return func(q browser.Querier) (string, bool) {
		for _, o := range opts {
			if v, ok := o(q); ok {
				return v, true
			}
		}
		return "", false
	}
}

// Map post-processes a known value; fn may turn it unknown.
func (o Optional) Map(fn func(string) (string, bool)) Optional {
	return func(q browser.Querier) (string, bool) {
		v, ok := o(q)
		if !ok {
			return "", false
		}
		return fn(v)
	}
}

// Prefix resolves relative links against base.
func (o Optional) Prefix(base string) Optional {
	return o.Map(func(v string) (string, bool) {
		if strings.HasPrefix(v, "http") {
			return v, true
		}
		return base + v, true
	})
}

// BeforeSeparator keeps the text up to the first sep, e.g. "Pune · 2 days ago" -> "Pune".
func BeforeSeparator(sep string) func(string) (string, bool) {
	return func(v string) (string, bool) {
		head, _, _ := strings.Cut(v, sep)
		head = strings.TrimSpace(head)
		return head, head != ""
	}
}

// Texts reads the non-empty trimmed texts of every node matching selector, in order.
func Texts(q browser.Querier, selector string) ([]string, bool) {
	els, err := q.QueryAll(selector)
	if err != nil {
		return nil, false
	}
	var out []string
	for _, el := range els {
		if v, ok := textOf(el); ok {
			out = append(out, v)
		}
	}
	return out, len(out) > 0
}

func textOf(el browser.Element) (string, bool) {
	txt, err := el.Text()
	if err != nil {
		return "", false
	}
	txt = strings.TrimSpace(txt)
	return txt, txt != ""
}
