package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFieldsFromReader(t *testing.T) {
	fields, err := TemplateFieldsFromReader(bytes.NewReader(formPDF(t)))
	require.NoError(t, err)

	assert.Equal(t, []TemplateField{
		{Name: "obra", Kind: KindText, Value: "Torre A", Required: true, MaxLen: 40},
		{Name: "ganchos", Kind: KindCheckbox, Value: "Yes"},
		{Name: "foso.agua", Kind: KindChoice, Value: "No", Options: []string{"Si", "No"}, ReadOnly: true},
		{Name: "estado", Kind: KindRadio, Value: "Apto"},
	}, fields)
}

func TestTemplateFields_NoForm(t *testing.T) {
	fields, err := TemplateFieldsFromReader(bytes.NewReader(plainPDF(t)))
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestTemplateFields_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ficha_base.pdf")
	require.NoError(t, os.WriteFile(path, formPDF(t), 0o644))

	fields, err := TemplateFields(path)
	require.NoError(t, err)
	assert.Len(t, fields, 4)

	_, err = TemplateFields(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestTemplateFields_NotPDF(t *testing.T) {
	_, err := TemplateFieldsFromReader(bytes.NewReader([]byte("hello")))
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		ft    string
		flags int
		want  FieldKind
	}{
		{"Tx", 0, KindText},
		{"Ch", 0, KindChoice},
		{"Sig", 0, KindSignature},
		{"Btn", 0, KindCheckbox},
		{"Btn", flagRadio, KindRadio},
		{"Btn", flagPushButton, KindButton},
		{"", 0, KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindOf(tt.ft, tt.flags), "%s/%d", tt.ft, tt.flags)
	}
}
