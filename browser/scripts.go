package browser

import (
	"encoding/json"
	"strings"
)

// mutationBinding is the page-side function the child-list observer calls.
const mutationBinding = "__engagementChildList"

const containerPresentJS = `function(id) {
	return document.getElementById(id) !== null;
}`

const cardsJS = `function(id, sel) {
	var c = document.getElementById(id);
	if (!c) return {found: false, cards: []};
	var cards = Array.from(c.querySelectorAll(sel)).map(function(el) {
		return {id: el.getAttribute('data-thread-id') || '', html: el.outerHTML};
	});
	return {found: true, cards: cards};
}`

// observeJS watches direct children only and reports a batch when nodes
// were actually added or removed.
const observeJS = `function(id, binding) {
	var c = document.getElementById(id);
	if (!c) return false;
	if (window.__engagementObserver) window.__engagementObserver.disconnect();
	window.__engagementObserver = new MutationObserver(function(mutations) {
		var changed = mutations.some(function(m) {
			return m.addedNodes.length > 0 || m.removedNodes.length > 0;
		});
		if (changed && typeof window[binding] === 'function') window[binding]('childList');
	});
	window.__engagementObserver.observe(c, {childList: true, subtree: false});
	return true;
}`

const disconnectJS = `function() {
	if (window.__engagementObserver) {
		window.__engagementObserver.disconnect();
		window.__engagementObserver = null;
	}
	return true;
}`

const setBorderJS = `function(id, sel, idx, thread, value) {
	var c = document.getElementById(id);
	if (!c) return false;
	var el = c.querySelectorAll(sel)[idx];
	if (!el) return false;
	if (thread && el.getAttribute('data-thread-id') !== thread) return false;
	el.style.borderLeft = value;
	return true;
}`

// call renders an immediately-invoked call of fn with JSON-encoded args.
func call(fn string, args ...any) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")"
}
