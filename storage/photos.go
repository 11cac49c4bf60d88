// Package storage keeps uploaded asset photos on local disk.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PhotoStore accepts an upload and returns a stable reference path.
type PhotoStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

// DiskStore 以内容哈希命名文件，同一张图只存一份
type DiskStore struct {
	dir    string // 本地目录
	prefix string // 返回给前端的路径前缀
}

func NewDiskStore(dir, prefix string) *DiskStore {
	return &DiskStore{dir: dir, prefix: strings.TrimRight(prefix, "/")}
}

// Save streams r into a temp file while hashing, then renames it to <sha256><ext>.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := hex.EncodeToString(h.Sum(nil)) + SanitizeExt(filename)
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path.Join(s.prefix, name), nil
}

// SanitizeExt keeps a short alphanumeric extension of the client filename, lowercased.
func SanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
