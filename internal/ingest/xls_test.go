package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/core"
)

// ole2Magic opens every compound document, legacy workbooks included.
const ole2Magic = "\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1"

func TestRecoverDecode(t *testing.T) {
	decode := func() (err error) {
		defer recoverDecode(&err)
		panic("unexpected record type")
	}
	err := decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt xls")

	clean := func() (err error) {
		defer recoverDecode(&err)
		return nil
	}
	assert.NoError(t, clean())
}

func TestRead_XLSCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"magic only", []byte(ole2Magic)},
		{"truncated header", append([]byte(ole2Magic), make([]byte, 64)...)},
		{"magic then junk", append([]byte(ole2Magic), bytes.Repeat([]byte{0xFF}, 1024)...)},
		{"text", []byte(strings.Repeat("Data,Valor\n", 10))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read("x.xls", bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, core.ErrFileRead)
		})
	}
}
