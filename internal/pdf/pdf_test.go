package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prescription = `# Receituário

**Paciente:** José & Maria <script>alert("x")</script>

1- Vitamina D.........................1 cápsula
- Tomar após o almoço

<style>body{display:none}</style>
`

func TestToPlainText(t *testing.T) {
	text, err := New(DefaultOptions()).ToPlainText(prescription)
	require.NoError(t, err)

	assert.Contains(t, text, "Receituário")
	assert.Contains(t, text, "Paciente: José & Maria")
	assert.Contains(t, text, "1- Vitamina D.........................1 cápsula")
	assert.Contains(t, text, "Tomar após o almoço")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "display:none")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "&amp;")
}

func TestRender(t *testing.T) {
	data, err := New(Options{}).Render(prescription)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(data, []byte("/Helvetica")))
}

func TestRender_LongTextFlowsOntoMorePages(t *testing.T) {
	var long bytes.Buffer
	for i := 0; i < 200; i++ {
		long.WriteString("Linha de posologia com instruções detalhadas.\n\n")
	}
	data, err := New(DefaultOptions()).Render(long.String())
	require.NoError(t, err)
	pages := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	assert.Greater(t, pages, 1)
}

func TestExport_FailureWritesNothing(t *testing.T) {
	e := New(Options{FontFamily: "NoSuchFont"})

	var out bytes.Buffer
	err := e.Export(&out, "texto")
	require.Error(t, err)
	assert.Zero(t, out.Len())

	path := filepath.Join(t.TempDir(), FileName)
	require.Error(t, e.WriteFile(path, "texto"))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName)
	require.NoError(t, New(DefaultOptions()).WriteFile(path, "Olá"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestWriteFile_FailedRenameRemovesTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	err := New(DefaultOptions()).WriteFile(path, "Olá")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write pdf")

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}
