// Package loader reads puzzle word lists from files.
//
// Plain text files hold the words separated by commas or newlines. Files
// ending in .yaml or .yml hold either a top-level list or a mapping with a
// words key.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"connsolver/internal/puzzle"
)

// MaxFileSize bounds how much of a puzzle file is read.
const MaxFileSize = 64 << 10

var (
	ErrOutsideRoot = errors.New("puzzle file is outside the puzzle directory")
	ErrTooLarge    = errors.New("puzzle file is too large")
)

// FileLoader resolves puzzle file names against Root. An empty Root leaves
// names untouched.
type FileLoader struct {
	Root string
}

// New returns a FileLoader rooted at root.
func New(root string) *FileLoader {
	return &FileLoader{Root: root}
}

// Load reads the puzzle file at name. Every error wraps puzzle.ErrSetup, and
// a missing file also matches os.ErrNotExist.
func (l *FileLoader) Load(name string) ([]string, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", puzzle.ErrSetup, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", puzzle.ErrSetup, err)
	}
	defer f.Close()

	words, err := Parse(path, f)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("file", path).Int("words", len(words)).Msg("puzzle file loaded")
	return words, nil
}

func (l *FileLoader) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("puzzle file name is empty")
	}
	if l.Root == "" {
		return name, nil
	}
	if filepath.IsAbs(name) {
		rel, err := filepath.Rel(l.Root, name)
		if err != nil || !filepath.IsLocal(rel) {
			return "", ErrOutsideRoot
		}
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(l.Root, name), nil
}

// Parse reads a word list from r. name picks the format by extension.
func Parse(name string, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read puzzle: %w", puzzle.ErrSetup, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %w", puzzle.ErrSetup, ErrTooLarge)
	}

	var words []string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		words, err = parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", puzzle.ErrSetup, filepath.Base(name), err)
		}
	default:
		words = splitWords(string(data))
	}
	return words, nil
}

// splitWords splits on commas and line breaks, dropping blank entries.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return lo.FilterMap(fields, func(f string, _ int) (string, bool) {
		w := strings.TrimSpace(f)
		return w, w != ""
	})
}

type puzzleDoc struct {
	Words []string `yaml:"words"`
}

func parseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var words []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&words); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc puzzleDoc
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		words = doc.Words
	default:
		return nil, errors.New("expected a list of words or a words key")
	}
	return lo.Map(words, func(w string, _ int) string { return strings.TrimSpace(w) }), nil
}
