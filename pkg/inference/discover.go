package inference

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// EmbeddingExt is the extension of every output file.
const EmbeddingExt = ".npy"

// Discover returns the regular files under root whose trailing path
// segments match pattern, sorted by their path relative to root.
//
// A pattern with n slash-separated segments is matched against the last n
// segments of each relative path, so "*.wav" finds .wav files at any
// depth and "spk*/*.wav" finds .wav files directly inside a spk* directory.
func Discover(root, pattern string) ([]string, error) {
	segs, err := splitPattern(pattern)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("inference: input dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inference: input %s is not a directory", root)
	}

	var rels []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchTrailing(segs, strings.Split(rel, "/")) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inference: walk %s: %w", root, err)
	}

	slices.Sort(rels)
	files := make([]string, len(rels))
	for i, rel := range rels {
		files[i] = filepath.Join(root, filepath.FromSlash(rel))
	}
	return files, nil
}

func splitPattern(pattern string) ([]string, error) {
	pattern = strings.Trim(filepath.ToSlash(pattern), "/")
	if pattern == "" {
		return nil, fmt.Errorf("inference: empty pattern")
	}
	segs := strings.Split(pattern, "/")
	for _, s := range segs {
		if _, err := path.Match(s, ""); err != nil {
			return nil, fmt.Errorf("inference: pattern %q: %w", pattern, err)
		}
	}
	return segs, nil
}

func matchTrailing(pattern, parts []string) bool {
	if len(parts) < len(pattern) {
		return false
	}
	parts = parts[len(parts)-len(pattern):]
	for i, seg := range pattern {
		if ok, _ := path.Match(seg, parts[i]); !ok {
			return false
		}
	}
	return true
}

// OutputPath returns the slash-separated output path of file relative to
// the output root: its path relative to root with the extension replaced
// by .npy.
func OutputPath(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("inference: %s: %w", file, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("inference: %s is not under %s", file, root)
	}
	dir, base := path.Split(rel)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return dir + base + EmbeddingExt, nil
}
