package pdf

import (
	"bytes"
	"fmt"
	"testing"
)

// buildPDF writes a classic-xref PDF from numbered object bodies (object i+1
// is objects[i]) with object 1 as the catalog.
func buildPDF(t *testing.T, objects []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func formPDF(t *testing.T) []byte {
	return buildPDF(t, []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R 5 0 R 6 0 R 7 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Annots [4 0 R 5 0 R 8 0 R 9 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (obra) /V (Torre A) /Ff 2 /MaxLen 40 /Rect [10 800 200 820] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (ganchos) /V /Yes /Rect [10 770 30 790] /P 3 0 R >>",
		"<< /T (foso) /Kids [8 0 R] >>",
		"<< /FT /Btn /T (estado) /Ff 32768 /V /Apto /Kids [9 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /Parent 6 0 R /FT /Ch /T (agua) /Opt [(Si) (No)] /V (No) /Ff 1 /Rect [10 740 100 760] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /Parent 7 0 R /Rect [10 710 30 730] /AS /Apto /P 3 0 R >>",
	})
}

func plainPDF(t *testing.T) []byte {
	return buildPDF(t, []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] >>",
	})
}
