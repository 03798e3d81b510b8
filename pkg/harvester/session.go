package harvester

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/sigfetch/sigfetch/internal/types"
)

const desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// stealthScript masks the usual automation signals before any page
// script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
`

type SessionConfig struct {
	Headless bool
}

// browserSession owns one Chromium instance and one browser context,
// shared by every page opened through it.
type browserSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
}

// NewSession launches a stealth Chromium session with a fixed desktop
// identity. The caller must Close it.
func NewSession(config SessionConfig) (types.Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-web-security",
			"--user-agent=" + desktopUserAgent,
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(desktopUserAgent),
		Viewport:  &playwright.Size{Width: 1280, Height: 720},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := ctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		ctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	return &browserSession{pw: pw, browser: browser, ctx: ctx}, nil
}

func (s *browserSession) NewPage() (types.Page, error) {
	page, err := s.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &browserPage{page: page}, nil
}

func (s *browserSession) Close() error {
	if err := s.ctx.Close(); err != nil {
		return err
	}
	if err := s.browser.Close(); err != nil {
		return err
	}
	return s.pw.Stop()
}

type browserPage struct {
	page playwright.Page
}

func (p *browserPage) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *browserPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *browserPage) QueryAll(selector string) ([]types.Node, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]types.Node, len(handles))
	for i, h := range handles {
		nodes[i] = &browserNode{el: h}
	}
	return nodes, nil
}

func (p *browserPage) ScrollToBottom() error {
	_, err := p.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

func (p *browserPage) Close() error {
	return p.page.Close()
}

type browserNode struct {
	el playwright.ElementHandle
}

func (n *browserNode) Text() (string, error) {
	return n.el.InnerText()
}

func (n *browserNode) Attribute(name string) (string, error) {
	return n.el.GetAttribute(name)
}

func (n *browserNode) QueryAll(selector string) ([]types.Node, error) {
	handles, err := n.el.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]types.Node, len(handles))
	for i, h := range handles {
		nodes[i] = &browserNode{el: h}
	}
	return nodes, nil
}
