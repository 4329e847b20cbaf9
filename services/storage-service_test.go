package services

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"subsidy-crm/crm-service/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageServiceStoreAndOpen(t *testing.T) {
	storage, err := NewStorageService(t.TempDir())
	require.NoError(t, err)

	content := []byte("%PDF-1.7\nsome pdf body")
	ref, err := storage.Store("report.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	f, err := storage.Open(ref)
	require.NoError(t, err)
	defer f.Close()

	stored, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestStorageServiceRejectsNonPDF(t *testing.T) {
	storage, err := NewStorageService(t.TempDir())
	require.NoError(t, err)

	for name, body := range map[string]string{
		"plain text": "hello world",
		"empty file": "",
		"png magic":  "\x89PNG\r\n",
	} {
		_, err := storage.Store(name, strings.NewReader(body))
		assert.Error(t, err, name)
		assert.Equal(t, utils.KindValidation, utils.KindOf(err), name)
	}
}

func TestStorageServiceOpenRejectsPathTraversal(t *testing.T) {
	storage, err := NewStorageService(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../secrets.pdf", "a/b.pdf"} {
		_, err := storage.Open(ref)
		assert.Error(t, err, ref)
	}
}

func TestStorageServiceOpenMissingRef(t *testing.T) {
	storage, err := NewStorageService(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Open("does-not-exist.pdf")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}
