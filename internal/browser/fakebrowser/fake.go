// Package fakebrowser is an in-memory browser.Page over static HTML fixtures.
// Selectors are evaluated with goquery, so fixtures use the same CSS the live
// platforms are scraped with.
package fakebrowser

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"go-job-acquisition/internal/browser"

	"github.com/PuerkitoBio/goquery"
)

const blankPage = "<html><head></head><body></body></html>"

var errDetached = errors.New("element is detached from the document")

// ClickHandler runs when a clicked element matches Selector.
type ClickHandler struct {
	Selector string
	Do       func(p *Page, el *goquery.Selection) error
}

// Site describes every document the fake browser can reach.
type Site struct {
	// Pages maps a URL (with or without its query string) to HTML.
	Pages map[string]string
	// Route may rewrite a navigation target, e.g. to redirect /login to /feed once cookies exist.
	Route func(p *Page, url string) string
	// Details maps data-detail keys to the HTML swapped into DetailSelector on click.
	Details        map[string]string
	DetailSelector string
	Clicks         []ClickHandler
	// Height is the page-height oracle, indexed by the number of scrolls so far.
	Height func(scrolls int) int
	// FailSelectors make every query for these selectors fail as if the node detached.
	FailSelectors []string
}

// Page implements browser.Page. It is not safe for concurrent use, same as a real tab.
type Page struct {
	site    *Site
	url     string
	doc     *goquery.Document
	cookies []browser.Cookie
	scrolls int

	Navigations []string
	ClickCount  int
}

var _ browser.Page = (*Page)(nil)

func New(site *Site) *Page {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(blankPage))
	return &Page{site: site, url: "about:blank", doc: doc}
}

// Doc exposes the current document to click handlers and tests.
func (p *Page) Doc() *goquery.Document {
	return p.doc
}

// SetURL changes the address bar without loading a document.
func (p *Page) SetURL(url string) {
	p.url = url
}

func (p *Page) Scrolls() int {
	return p.scrolls
}

func (p *Page) Navigate(url string) error {
	target := url
	if p.site.Route != nil {
		target = p.site.Route(p, url)
	}
	p.Navigations = append(p.Navigations, target)
	return p.load(target)
}

func (p *Page) load(url string) error {
	html, ok := p.site.Pages[url]
	if !ok {
		if i := strings.Index(url, "?"); i >= 0 {
			html, ok = p.site.Pages[url[:i]]
		}
	}
	if !ok {
		html = blankPage
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &browser.DomInteractionError{Op: "navigate", Err: err}
	}
	p.url = url
	p.doc = doc
	p.scrolls = 0
	return nil
}

func (p *Page) Reload() error {
	return p.Navigate(p.url)
}

func (p *Page) CurrentURL() string {
	return p.url
}

func (p *Page) Content() (string, error) {
	return p.doc.Html()
}

// Screenshot writes the current HTML to path.
func (p *Page) Screenshot(path string) error {
	html, err := p.doc.Html()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0644)
}

func (p *Page) Query(selector string) (browser.Element, error) {
	return p.query(p.doc, p.doc.Selection, selector)
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	return p.queryAll(p.doc, p.doc.Selection, selector)
}

func (p *Page) WaitForSelector(selector string, _ time.Duration) (browser.Element, error) {
	el, err := p.Query(selector)
	if errors.Is(err, browser.ErrElementNotFound) {
		return nil, &browser.DomInteractionError{Op: "wait", Selector: selector, Err: browser.ErrTimeout}
	}
	return el, err
}

func (p *Page) Evaluate(script string) (any, error) {
	switch script {
	case browser.ScriptScrollHeight:
		if p.site.Height == nil {
			return 1000, nil
		}
		return p.site.Height(p.scrolls), nil
	case browser.ScriptScrollToBottom:
		p.scrolls++
		return nil, nil
	}
	return nil, &browser.DomInteractionError{Op: "evaluate", Err: fmt.Errorf("unsupported script %q", script)}
}

func (p *Page) Cookies() ([]browser.Cookie, error) {
	return slices.Clone(p.cookies), nil
}

func (p *Page) AddCookies(cookies []browser.Cookie) error {
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *Page) query(doc *goquery.Document, root *goquery.Selection, selector string) (browser.Element, error) {
	if slices.Contains(p.site.FailSelectors, selector) {
		return nil, &browser.DomInteractionError{Op: "query", Selector: selector, Err: errDetached}
	}
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return nil, browser.NotFound("query", selector)
	}
	return &element{page: p, doc: doc, sel: s}, nil
}

func (p *Page) queryAll(doc *goquery.Document, root *goquery.Selection, selector string) ([]browser.Element, error) {
	if slices.Contains(p.site.FailSelectors, selector) {
		return nil, &browser.DomInteractionError{Op: "query all", Selector: selector, Err: errDetached}
	}
	var out []browser.Element
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{page: p, doc: doc, sel: s})
	})
	return out, nil
}

type element struct {
	page *Page
	doc  *goquery.Document
	sel  *goquery.Selection
}

func (e *element) attached() error {
	if e.doc != e.page.doc {
		return &browser.DomInteractionError{Op: "use handle", Err: errDetached}
	}
	return nil
}

func (e *element) Query(selector string) (browser.Element, error) {
	if err := e.attached(); err != nil {
		return nil, err
	}
	return e.page.query(e.doc, e.sel, selector)
}

func (e *element) QueryAll(selector string) ([]browser.Element, error) {
	if err := e.attached(); err != nil {
		return nil, err
	}
	return e.page.queryAll(e.doc, e.sel, selector)
}

// Click runs the first matching handler, then falls back to data-detail and href.
func (e *element) Click() error {
	if err := e.attached(); err != nil {
		return err
	}
	p := e.page
	p.ClickCount++
	for _, h := range p.site.Clicks {
		if e.sel.Is(h.Selector) {
			return h.Do(p, e.sel)
		}
	}
	if key, ok := e.sel.Attr("data-detail"); ok {
		html, found := p.site.Details[key]
		if !found {
			return &browser.DomInteractionError{Op: "click", Err: fmt.Errorf("no detail fixture %q", key)}
		}
		pane := p.doc.Find(p.site.DetailSelector)
		if pane.Length() == 0 {
			return browser.NotFound("click", p.site.DetailSelector)
		}
		pane.SetHtml(html)
		if href, ok := e.sel.Attr("href"); ok {
			p.url = href
		}
		return nil
	}
	if href, ok := e.sel.Attr("href"); ok {
		return p.Navigate(href)
	}
	return nil
}

func (e *element) Type(text string) error {
	if err := e.attached(); err != nil {
		return err
	}
	e.sel.SetAttr("value", text)
	return nil
}

func (e *element) Text() (string, error) {
	if err := e.attached(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	if err := e.attached(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}
