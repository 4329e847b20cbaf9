package services

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"subsidy-crm/crm-service/utils"

	"github.com/google/uuid"
)

var pdfMagic = []byte("%PDF")

// StorageService keeps uploaded attachments on disk under a configured root.
// Only well-formed PDFs are accepted.
type StorageService struct {
	Root string
}

func NewStorageService(root string) (*StorageService, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %v", root, err)
	}
	return &StorageService{Root: root}, nil
}

// Store validates the upload and writes it to disk, returning the stable
// relative reference recorded on the task attachment.
func (s *StorageService) Store(fileName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %v", err)
	}
	if len(data) < len(pdfMagic) || !bytes.HasPrefix(data, pdfMagic) {
		return "", utils.Validation("only PDF files are accepted")
	}

	ref := uuid.New().String() + ".pdf"
	if err := os.WriteFile(filepath.Join(s.Root, ref), data, 0600); err != nil {
		return "", fmt.Errorf("failed to store file %s: %v", fileName, err)
	}
	return ref, nil
}

// Open returns the stored file for a previously issued reference. The ref is
// constrained to a bare file name so a crafted path cannot escape the root.
func (s *StorageService) Open(ref string) (*os.File, error) {
	if ref == "" || filepath.Base(ref) != ref {
		return nil, utils.Validation("invalid attachment reference")
	}
	f, err := os.Open(filepath.Join(s.Root, ref))
	if os.IsNotExist(err) {
		return nil, utils.NotFound("attachment not found")
	}
	return f, err
}
