package browser

// stealthScript runs before any page script in every document of a session.
// It hides the automation flag and fills the fingerprint properties headless
// Chrome leaves empty, so the SSO does not reject the session as a bot.
const stealthScript = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	window.chrome = window.chrome || { runtime: {} };
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['fr-FR', 'fr', 'en-US', 'en'] });
})();`
