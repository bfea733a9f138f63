// Package scanner walks repository trees and produces candidate file records.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// FileRecord is one supported file within a repository.
type FileRecord struct {
	// RelPath is the repository-relative path (forward slashes).
	// It is the stable identity component of the file.
	RelPath string

	// AbsPath is the absolute filesystem path.
	AbsPath string

	// Content is the raw file content.
	Content string

	// Language is the detected language (from extension).
	Language string

	// Size is the file size in bytes (from stat).
	Size int64

	// ModTime is the file modification time.
	ModTime time.Time

	hash string
}

// Hash returns the SHA-256 digest of the file content as a hex string.
// The digest is computed on first use and cached; change detection only
// needs it when size and mtime fail to explain a difference.
func (f *FileRecord) Hash() string {
	if f.hash == "" {
		sum := sha256.Sum256([]byte(f.Content))
		f.hash = hex.EncodeToString(sum[:])
	}
	return f.hash
}

// Name returns the base file name.
func (f *FileRecord) Name() string {
	return filepath.Base(f.RelPath)
}

// Config holds scanner configuration.
type Config struct {
	// Extensions is the allow-list of file extensions (with leading dot).
	Extensions []string

	// IgnorePatterns are skip rules; see Matcher.
	IgnorePatterns []string

	// MaxFileSize is the largest file in bytes that will be read.
	MaxFileSize int64
}

// Result is the outcome of one scan.
type Result struct {
	// Files are the supported, readable, non-empty files found.
	Files []*FileRecord

	// TotalFiles counts every regular file visited, including unsupported ones.
	TotalFiles int

	// SkippedFiles counts files skipped with a warning (unreadable,
	// binary, or oversized).
	SkippedFiles int
}

// Scanner walks a repository and yields FileRecords.
//
// A Scanner carries no state between calls: every Scan re-walks the tree.
type Scanner struct {
	cfg        Config
	extensions map[string]bool
	matcher    *Matcher
	logger     *zap.Logger
}

// New creates a scanner with the given configuration.
func New(cfg Config, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[strings.ToLower(ext)] = true
	}
	return &Scanner{
		cfg:        cfg,
		extensions: extensions,
		matcher:    NewMatcher(cfg.IgnorePatterns),
		logger:     logger,
	}
}

// Scan walks the tree rooted at root and returns all candidate files.
//
// Unreadable and binary files are skipped with a warning, never fatally.
// Whitespace-only files are excluded.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	cleanRoot := filepath.Clean(root)
	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root must be a directory: %s", cleanRoot)
	}

	result := &Result{}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(cleanRoot, path)
		if relErr != nil {
			return fmt.Errorf("computing relative path: %w", relErr)
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			if s.matcher.Match(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		// Cancellation is coarse: checked per file, never mid-file.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !d.Type().IsRegular() {
			return nil
		}
		result.TotalFiles++

		if s.matcher.Match(relPath) {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(relPath))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			result.SkippedFiles++
			s.logger.Warn("failed to stat file", zap.String("path", relPath), zap.Error(err))
			return nil
		}
		if s.cfg.MaxFileSize > 0 && fi.Size() > s.cfg.MaxFileSize {
			result.SkippedFiles++
			s.logger.Warn("file exceeds size limit",
				zap.String("path", relPath),
				zap.Int64("size", fi.Size()),
				zap.Int64("limit", s.cfg.MaxFileSize))
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			result.SkippedFiles++
			s.logger.Warn("failed to read file", zap.String("path", relPath), zap.Error(err))
			return nil
		}
		if !utf8.Valid(content) {
			result.SkippedFiles++
			s.logger.Warn("skipping binary file", zap.String("path", relPath))
			return nil
		}
		text := string(content)
		if strings.TrimSpace(text) == "" {
			return nil
		}

		result.Files = append(result.Files, &FileRecord{
			RelPath:  relPath,
			AbsPath:  path,
			Content:  text,
			Language: DetectLanguage(filepath.Ext(relPath)),
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking file tree: %w", err)
	}

	return result, nil
}
