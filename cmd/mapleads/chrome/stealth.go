package chrome

import (
	"encoding/json"
	"strings"

	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common headless-automation tells. The
// %LANGUAGES% placeholder is replaced with the session's language list.
const stealthScript = `
(() => {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(%LANGUAGES%),
        configurable: true
    });

    Object.defineProperty(navigator, 'plugins', {
        get: () => {
            const names = ['PDF Viewer', 'Chrome PDF Viewer', 'Chromium PDF Viewer'];
            const list = names.map(name => ({ name, filename: 'internal-pdf-viewer', description: 'Portable Document Format', length: 1 }));
            list.item = i => list[i] || null;
            list.namedItem = n => list.find(p => p.name === n) || null;
            list.refresh = () => {};
            return list;
        },
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', { value: {}, writable: true, configurable: false });
    }
    if (!window.chrome.runtime) {
        window.chrome.runtime = { connect() {}, sendMessage() {}, get id() { return undefined; } };
    }

    const query = Permissions.prototype.query;
    Permissions.prototype.query = function(p) {
        if (p && p.name === 'notifications') {
            return Promise.resolve({ state: Notification.permission });
        }
        return query.call(this, p);
    };

    if (!navigator.hardwareConcurrency) {
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8, configurable: true });
    }
})();
`

// StealthScript returns the evasion script for a locale.
func StealthScript(locale string) string {
	langs, _ := json.Marshal(languages(locale))
	return strings.Replace(stealthScript, "%LANGUAGES%", string(langs), 1)
}

// languages expands a locale into the navigator.languages list, e.g.
// en-GB becomes [en-GB en].
func languages(locale string) []string {
	if locale == "" {
		return []string{"en-US", "en"}
	}
	base, _, found := strings.Cut(locale, "-")
	if !found || base == "" {
		return []string{locale}
	}
	return []string{locale, base}
}

// acceptLanguage builds an Accept-Language header value for locale.
func acceptLanguage(locale string) string {
	langs := languages(locale)
	if len(langs) == 1 {
		return langs[0]
	}
	return langs[0] + "," + langs[1] + ";q=0.9"
}

// allocatorOptions returns the Chrome flags for cfg.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("hide-scrollbars", cfg.Headless),
		chromedp.Flag("mute-audio", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.Flag("accept-lang", acceptLanguage(cfg.Locale)),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)

	if cfg.Stealth {
		opts = append(opts,
			chromedp.Flag("excludeSwitches", "enable-automation"),
			chromedp.Flag("useAutomationExtension", false),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("disable-default-apps", true),
			chromedp.Flag("disable-background-timer-throttling", true),
			chromedp.Flag("disable-backgrounding-occluded-windows", true),
			chromedp.Flag("disable-renderer-backgrounding", true),
		)
	}

	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}
