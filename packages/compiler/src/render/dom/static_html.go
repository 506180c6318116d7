package dom

import (
	"strings"

	"github.com/valyala/quicktemplate"

	"sveltec-go/packages/compiler/src/css"
	"sveltec-go/packages/compiler/src/template"
)

// rawTextElements hold text that is not parsed as markup.
var rawTextElements = map[string]bool{
	"script": true,
	"style":  true,
}

// staticHTML serializes wrappers of a fully static subtree. Text and
// attribute values are HTML escaped; the scoping class is applied the same
// way rendered elements get it.
func staticHTML(nodes []Wrapper, sheet *css.Stylesheet) string {
	var sb strings.Builder
	qw := quicktemplate.AcquireWriter(&sb)
	writeStaticHTML(qw, nodes, sheet, false)
	quicktemplate.ReleaseWriter(qw)
	return sb.String()
}

func writeStaticHTML(qw *quicktemplate.Writer, nodes []Wrapper, sheet *css.Stylesheet, raw bool) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *textWrapper:
			if raw {
				qw.N().S(n.data)
			} else {
				qw.E().S(n.data)
			}
		case *elementWrapper:
			qw.N().S("<" + n.node.Name)
			for _, attr := range scopedAttributes(n.node, sheet) {
				a, ok := attr.(*template.Attribute)
				if !ok {
					continue
				}
				qw.N().S(" " + a.Name)
				if !a.IsTrue {
					qw.N().S(`="`)
					qw.E().S(a.StaticValue())
					qw.N().S(`"`)
				}
			}
			qw.N().S(">")
			if template.IsVoidElement(n.node.Name) {
				continue
			}
			writeStaticHTML(qw, n.fragment.nodes, sheet, rawTextElements[n.node.Name])
			qw.N().S("</" + n.node.Name + ">")
		}
	}
}
