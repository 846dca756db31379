package browser

import (
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
)

const navigationTimeoutMs = 30000

// PlaywrightPage adapts a playwright.Page to the Page capability.
type PlaywrightPage struct {
	page playwright.Page
}

func NewPlaywrightPage(page playwright.Page) *PlaywrightPage {
	return &PlaywrightPage{page: page}
}

func (p *PlaywrightPage) Navigate(url string) error {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeoutMs),
	}); err != nil {
		return &DomInteractionError{Op: "navigate", Err: mapErr(err)}
	}
	return nil
}

func (p *PlaywrightPage) Reload() error {
	if _, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeoutMs),
	}); err != nil {
		return &DomInteractionError{Op: "reload", Err: mapErr(err)}
	}
	return nil
}

func (p *PlaywrightPage) CurrentURL() string {
	return p.page.URL()
}

func (p *PlaywrightPage) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", &DomInteractionError{Op: "content", Err: mapErr(err)}
	}
	return html, nil
}

func (p *PlaywrightPage) Query(selector string) (Element, error) {
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, &DomInteractionError{Op: "query", Selector: selector, Err: mapErr(err)}
	}
	if h == nil {
		return nil, NotFound("query", selector)
	}
	return &playwrightElement{h: h}, nil
}

func (p *PlaywrightPage) QueryAll(selector string) ([]Element, error) {
	hs, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, &DomInteractionError{Op: "query all", Selector: selector, Err: mapErr(err)}
	}
	return wrapAll(hs), nil
}

func (p *PlaywrightPage) WaitForSelector(selector string, timeout time.Duration) (Element, error) {
	h, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, &DomInteractionError{Op: "wait", Selector: selector, Err: mapErr(err)}
	}
	if h == nil {
		return nil, NotFound("wait", selector)
	}
	return &playwrightElement{h: h}, nil
}

func (p *PlaywrightPage) Evaluate(script string) (any, error) {
	v, err := p.page.Evaluate(script)
	if err != nil {
		return nil, &DomInteractionError{Op: "evaluate", Err: mapErr(err)}
	}
	return v, nil
}

func (p *PlaywrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *PlaywrightPage) Cookies() ([]Cookie, error) {
	pwCookies, err := p.page.Context().Cookies()
	if err != nil {
		return nil, &DomInteractionError{Op: "cookies", Err: err}
	}
	cookies := make([]Cookie, len(pwCookies))
	for i, c := range pwCookies {
		cookies[i] = FromPlaywright(c)
	}
	return cookies, nil
}

func (p *PlaywrightPage) AddCookies(cookies []Cookie) error {
	pwCookies := make([]playwright.OptionalCookie, len(cookies))
	for i, c := range cookies {
		pwCookies[i] = c.ToPlaywright()
	}
	if err := p.page.Context().AddCookies(pwCookies); err != nil {
		return &DomInteractionError{Op: "add cookies", Err: err}
	}
	return nil
}

type playwrightElement struct {
	h playwright.ElementHandle
}

func (e *playwrightElement) Query(selector string) (Element, error) {
	h, err := e.h.QuerySelector(selector)
	if err != nil {
		return nil, &DomInteractionError{Op: "query", Selector: selector, Err: mapErr(err)}
	}
	if h == nil {
		return nil, NotFound("query", selector)
	}
	return &playwrightElement{h: h}, nil
}

func (e *playwrightElement) QueryAll(selector string) ([]Element, error) {
	hs, err := e.h.QuerySelectorAll(selector)
	if err != nil {
		return nil, &DomInteractionError{Op: "query all", Selector: selector, Err: mapErr(err)}
	}
	return wrapAll(hs), nil
}

// Click falls back to a script click when the element is covered by an overlay.
func (e *playwrightElement) Click() error {
	err := e.h.Click(playwright.ElementHandleClickOptions{
		Timeout: playwright.Float(5000),
	})
	if err == nil {
		return nil
	}
	if _, jsErr := e.h.Evaluate("el => el.click()"); jsErr != nil {
		return &DomInteractionError{Op: "click", Err: mapErr(err)}
	}
	return nil
}

func (e *playwrightElement) Type(text string) error {
	if err := e.h.Fill(text); err != nil {
		return &DomInteractionError{Op: "type", Err: mapErr(err)}
	}
	return nil
}

func (e *playwrightElement) Text() (string, error) {
	txt, err := e.h.InnerText()
	if err != nil {
		return "", &DomInteractionError{Op: "text", Err: mapErr(err)}
	}
	return txt, nil
}

// Attribute goes through a script because GetAttribute cannot tell absent from empty.
func (e *playwrightElement) Attribute(name string) (string, bool, error) {
	v, err := e.h.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, &DomInteractionError{Op: "attribute", Selector: name, Err: mapErr(err)}
	}
	s, ok := v.(string)
	return s, ok, nil
}

func wrapAll(hs []playwright.ElementHandle) []Element {
	out := make([]Element, 0, len(hs))
	for _, h := range hs {
		out = append(out, &playwrightElement{h: h})
	}
	return out
}

func mapErr(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
