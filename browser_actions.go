package reagentcrawler

import (
	"fmt"
	"time"
)

// scrollUntilStableScript scrolls in steps until the document height has not
// changed for the given number of checks, loading lazily rendered results.
const scrollUntilStableScript = `async () => {
	const step = %d, stableChecks = %d, interval = %d;
	let last = 0, stable = 0;
	while (stable < stableChecks) {
		window.scrollBy(0, step);
		await new Promise(r => setTimeout(r, interval));
		const h = document.body.scrollHeight;
		if (h === last) { stable++; } else { stable = 0; last = h; }
	}
}`

// ScrollUntilStable scrolls the page until lazy loading stops.
func ScrollUntilStable(step, stableChecks int, interval time.Duration) Action {
	return Evaluate(fmt.Sprintf(scrollUntilStableScript, step, stableChecks, interval.Milliseconds()))
}

// Settle waits for selector and then a fixed delay, the usual way to let a
// client-rendered listing finish.
func Settle(selector string, timeout, delay time.Duration) []Action {
	actions := []Action{WaitFor(selector, timeout)}
	if delay > 0 {
		actions = append(actions, Sleep(delay))
	}
	return actions
}

// ClickAndSettle clicks selector once it appears and pauses for the page to react.
func ClickAndSettle(selector string, timeout, delay time.Duration) []Action {
	actions := []Action{WaitFor(selector, timeout), Click(selector, timeout)}
	if delay > 0 {
		actions = append(actions, Sleep(delay))
	}
	return actions
}
