package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldKind is the AcroForm type of a template field.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindCheckbox  FieldKind = "checkbox"
	KindRadio     FieldKind = "radio"
	KindButton    FieldKind = "button"
	KindChoice    FieldKind = "choice"
	KindSignature FieldKind = "signature"
	KindUnknown   FieldKind = "unknown"
)

// TemplateField is one interactive field of a base PDF template.
type TemplateField struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Value    string    `json:"value,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
	ReadOnly bool      `json:"read_only"`
	MaxLen   int       `json:"max_len,omitempty"`
}

// Field flag bits, PDF 32000-1 table 221 and 226.
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
)

// maxFieldDepth bounds the walk of nested Kids arrays.
const maxFieldDepth = 32

// TemplateFields lists the AcroForm fields of the PDF at path, with fully
// qualified names of terminal fields in document order.
func TemplateFields(path string) ([]TemplateField, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()
	return TemplateFieldsFromReader(f)
}

// TemplateFieldsFromReader lists the AcroForm fields of a PDF. A document
// without a form yields no fields and no error.
func TemplateFieldsFromReader(rs io.ReadSeeker) ([]TemplateField, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroForm, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroForm == nil {
		return nil, nil
	}
	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil, nil
	}
	roots, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	w := &fieldWalker{ctx: ctx}
	for _, obj := range roots {
		w.walk(obj, fieldAttrs{}, 0)
	}
	return w.fields, nil
}

// fieldAttrs are the inheritable entries passed down the field tree.
type fieldAttrs struct {
	name  string
	ft    string
	flags int
	opts  []string
}

type fieldWalker struct {
	ctx    *model.Context
	fields []TemplateField
}

func (w *fieldWalker) walk(obj types.Object, parent fieldAttrs, depth int) {
	if depth > maxFieldDepth {
		return
	}
	dict, err := w.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return
	}

	attrs := parent
	if partial := w.str(dict, "T"); partial != "" {
		if attrs.name == "" {
			attrs.name = partial
		} else {
			attrs.name = attrs.name + "." + partial
		}
	}
	if ftObj, found := dict.Find("FT"); found {
		if ft, err := w.ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			attrs.ft = string(ft)
		}
	}
	if flagsObj, found := dict.Find("Ff"); found {
		if flags, err := w.ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			attrs.flags = int(*flags)
		}
	}
	if opts := w.options(dict); opts != nil {
		attrs.opts = opts
	}

	// a field whose kids carry names is a non-terminal node; kids without
	// names are its widget annotations
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := w.ctx.DereferenceArray(kidsObj); err == nil && w.hasNamedKid(kids) {
			for _, kid := range kids {
				w.walk(kid, attrs, depth+1)
			}
			return
		}
	}

	if attrs.name == "" {
		attrs.name = fmt.Sprintf("field_%d", len(w.fields))
	}
	field := TemplateField{
		Name:     attrs.name,
		Kind:     kindOf(attrs.ft, attrs.flags),
		Options:  attrs.opts,
		Required: attrs.flags&flagRequired != 0,
		ReadOnly: attrs.flags&flagReadOnly != 0,
	}
	if vObj, found := dict.Find("V"); found {
		field.Value = w.value(vObj)
	}
	if mlObj, found := dict.Find("MaxLen"); found {
		if ml, err := w.ctx.DereferenceInteger(mlObj); err == nil && ml != nil {
			field.MaxLen = int(*ml)
		}
	}
	w.fields = append(w.fields, field)
}

func (w *fieldWalker) hasNamedKid(kids types.Array) bool {
	for _, kid := range kids {
		d, err := w.ctx.DereferenceDict(kid)
		if err != nil || d == nil {
			continue
		}
		if _, found := d.Find("T"); found {
			return true
		}
	}
	return false
}

func (w *fieldWalker) str(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := w.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

// value renders V as text: strings as is, names (checkbox and radio states)
// by their name, arrays (multi-select) comma separated.
func (w *fieldWalker) value(obj types.Object) string {
	if s, err := w.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	if n, err := w.ctx.DereferenceName(obj, model.V10, nil); err == nil {
		return string(n)
	}
	if arr, err := w.ctx.DereferenceArray(obj); err == nil {
		var parts []string
		for _, item := range arr {
			if s, err := w.ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func (w *fieldWalker) options(dict types.Dict) []string {
	optObj, found := dict.Find("Opt")
	if !found {
		return nil
	}
	arr, err := w.ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}
	opts := make([]string, 0, len(arr))
	for _, opt := range arr {
		// entries are strings or [export, display] pairs
		if s, err := w.ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			opts = append(opts, s)
		} else if pair, err := w.ctx.DereferenceArray(opt); err == nil && len(pair) >= 2 {
			if s, err := w.ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil); err == nil {
				opts = append(opts, s)
			}
		}
	}
	return opts
}

func kindOf(ft string, flags int) FieldKind {
	switch ft {
	case "Tx":
		return KindText
	case "Ch":
		return KindChoice
	case "Sig":
		return KindSignature
	case "Btn":
		switch {
		case flags&flagRadio != 0:
			return KindRadio
		case flags&flagPushButton != 0:
			return KindButton
		default:
			return KindCheckbox
		}
	default:
		return KindUnknown
	}
}
