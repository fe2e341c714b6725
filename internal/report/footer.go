package report

import "fmt"

const footerSuffix = "TKE Ficha Inspección"

// FooterText is the footer of page i (one-based) of n.
func FooterText(i, n int) string {
	return fmt.Sprintf("Página %d de %d - %s", i, n, footerSuffix)
}

// finish stamps the footer on every page. It runs once layout is complete,
// the only point where the page count is known.
func finish(doc *Document) {
	n := len(doc.Pages)
	for i, p := range doc.Pages {
		p.text(TagFooter, 196, 285, FooterText(i+1, n), Font{Size: 8}, colorFooter, AlignRight)
	}
}
