// Package source loads documents from the filesystem for indexing.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/ignore"
	"github.com/AnefuIII/aihero/internal/store"
)

// MaxFileSize is the largest file the loader will ingest.
const MaxFileSize = 10 * 1024 * 1024

// docExtensions are ingested as prose.
var docExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".rst": true, ".adoc": true,
}

// codeExtensions are ingested with the code flag set, so chunks can be
// rendered and filtered differently downstream.
var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".h": true, ".cpp": true, ".hpp": true, ".cs": true, ".sh": true,
	".sql": true, ".yaml": true, ".yml": true, ".toml": true, ".json": true,
}

// Loader reads documents from a docs root, honoring exclude globs and a
// .gitignore file in the root if present.
type Loader struct {
	root    string
	matcher *ignore.Matcher
	logger  *slog.Logger
}

// NewLoader creates a loader for the given root directory.
func NewLoader(root string, exclude []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		root:    root,
		matcher: ignore.NewWithPatterns(exclude),
		logger:  logger,
	}
}

// Load walks the docs root and returns documents ordered by path, so
// repeated builds over the same tree assign the same ingestion ordinals.
func (l *Loader) Load(ctx context.Context) ([]*store.Document, error) {
	absRoot, err := filepath.Abs(l.root)
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeFileNotFound, fmt.Sprintf("resolve docs root %q", l.root), err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, aerrors.New(aerrors.ErrCodeFileNotFound, fmt.Sprintf("docs root %q is not a directory", l.root), err)
	}

	if gi := filepath.Join(absRoot, ".gitignore"); fileExists(gi) {
		if err := l.matcher.AddFile(gi); err != nil {
			l.logger.Warn("gitignore_unreadable", slog.String("path", gi), slog.String("error", err.Error()))
		}
	}

	var docs []*store.Document
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			l.logger.Warn("walk_error", slog.String("path", path), slog.String("error", walkErr.Error()))
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || l.matcher.Match(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if l.matcher.Match(relPath, false) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		isCode := codeExtensions[ext]
		if !isCode && !docExtensions[ext] {
			return nil
		}

		doc, err := l.loadFile(path, relPath, isCode)
		if err != nil {
			l.logger.Warn("document_skipped", slog.String("path", relPath), slog.String("error", err.Error()))
			return nil
		}
		if doc != nil {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	l.logger.Info("documents_loaded",
		slog.String("root", l.root),
		slog.Int("count", len(docs)))
	return docs, nil
}

// loadFile reads one file into a Document. Oversized and non-UTF-8 files
// are skipped with a nil document.
func (l *Loader) loadFile(absPath, relPath string, isCode bool) (*store.Document, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		l.logger.Warn("document_too_large",
			slog.String("path", relPath),
			slog.Int64("size", info.Size()))
		return nil, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if !utf8.ValidString(content) {
		return nil, nil
	}

	return &store.Document{
		ID:        store.DocumentID(relPath),
		Path:      filepath.ToSlash(relPath),
		Title:     ExtractTitle(content, relPath),
		Content:   content,
		IsCode:    isCode,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ExtractTitle returns the first markdown heading, or the file name
// without extension when no heading is found.
func ExtractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			title := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if title != "" {
				return title
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
