package phenopacket

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
)

var (
	ErrNoOutput = errors.New("no phenopacket output directory found")

	disallowedDirChars = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// Marshal encodes a document the way it is written to disk.
func Marshal(doc *models.Phenopacket) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// WriteFiles writes one <id>.json file per document into dir, creating it if
// needed, and returns the paths written in document order.
func WriteFiles(docs []*models.Phenopacket, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			return paths, fmt.Errorf("document without id cannot be written")
		}
		content, err := Marshal(doc)
		if err != nil {
			return paths, fmt.Errorf("failed to marshal phenopacket %s: %w", doc.ID, err)
		}
		path := filepath.Join(dir, SanitizeDirName(doc.ID)+".json")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write phenopacket %s: %w", doc.ID, err)
		}
		paths = append(paths, path)
	}
	logger.WithField("dir", dir).Infof("wrote %d phenopackets", len(paths))
	return paths, nil
}

func ReadFile(path string) (*models.Phenopacket, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var doc models.Phenopacket
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse phenopacket %s: %w", path, err)
	}
	return &doc, nil
}

// ReadDir reads every *.json document in dir, ordered by file name.
func ReadDir(dir string) ([]*models.Phenopacket, error) {
	paths, err := JSONFiles(dir)
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Phenopacket, 0, len(paths))
	for _, p := range paths {
		doc, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// JSONFiles lists the *.json files directly inside dir, sorted.
func JSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SanitizeDirName removes characters not allowed in directory names
// (<>:"/\|?*). A name that is blank afterwards becomes empty.
func SanitizeDirName(name string) string {
	clean := disallowedDirChars.ReplaceAllString(name, "")
	if strings.TrimSpace(clean) == "" {
		return ""
	}
	return clean
}

// LastOutputDir returns the most recently modified run directory below any of
// roots. Missing roots are skipped.
func LastOutputDir(roots ...string) (string, error) {
	var (
		latest string
		found  bool
		newest int64
	)
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return "", err
			}
			if mod := info.ModTime().UnixNano(); !found || mod > newest {
				latest, newest, found = filepath.Join(root, e.Name()), mod, true
			}
		}
	}
	if !found {
		return "", fmt.Errorf("%w in %s", ErrNoOutput, strings.Join(roots, ", "))
	}
	return latest, nil
}
