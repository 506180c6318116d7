package scope

var globals = map[string]bool{}

func init() {
	for _, name := range []string{
		"alert", "Array", "BigInt", "Boolean", "clearInterval", "clearTimeout",
		"confirm", "console", "Date", "decodeURI", "decodeURIComponent",
		"document", "Element", "encodeURI", "encodeURIComponent", "Error",
		"EvalError", "Event", "EventSource", "fetch", "FormData", "global",
		"globalThis", "history", "HTMLElement", "Infinity", "Intl", "isFinite",
		"isNaN", "JSON", "localStorage", "location", "Map", "Math", "NaN",
		"navigator", "Node", "Number", "Object", "parseFloat", "parseInt",
		"performance", "process", "Promise", "prompt", "Proxy", "RangeError",
		"ReferenceError", "Reflect", "RegExp", "requestAnimationFrame",
		"sessionStorage", "Set", "setInterval", "setTimeout", "String",
		"structuredClone", "Symbol", "SyntaxError", "TypeError", "undefined",
		"URIError", "URL", "URLSearchParams", "WeakMap", "WeakSet", "window",
		"arguments", "$$props", "$$restProps", "$$slots",
	} {
		globals[name] = true
	}
}

// IsGlobal reports whether name is provided by the JavaScript environment.
func IsGlobal(name string) bool {
	return globals[name]
}
