package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

var (
	pairTemplate = template.Must(template.New("migration").Parse(
		`-- {{.Version}} {{.Name}} ({{.Direction}})
-- Created: {{.Created}}
{{if .Description}}-- {{.Description}}
{{end}}
`))

	upFile      = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.up\.sql$`)
	nonWordRun  = regexp.MustCompile(`[^a-z0-9]+`)
	versionSize = 6
)

// Pair is a created up/down migration
type Pair struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// Create writes the next sequential migration pair into dir
func Create(dir, name, description string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(dir)
	if err != nil {
		return nil, err
	}
	next := 1
	if len(existing) > 0 {
		next = existing[len(existing)-1].Version + 1
	}

	version := fmt.Sprintf("%0*d", versionSize, next)
	base := filepath.Join(dir, version+"_"+slug)
	p := &Pair{Version: version, Name: slug, UpPath: base + ".up.sql", DownPath: base + ".down.sql"}

	created := time.Now().UTC().Format(time.RFC3339)
	if err := writeMigration(p.UpPath, p, "up", created, description); err != nil {
		return nil, err
	}
	if err := writeMigration(p.DownPath, p, "down", created, description); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

func writeMigration(path string, p *Pair, direction, created, description string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return pairTemplate.Execute(f, map[string]string{
		"Version":     p.Version,
		"Name":        p.Name,
		"Direction":   direction,
		"Created":     created,
		"Description": description,
	})
}

func slugify(name string) string {
	return strings.Trim(nonWordRun.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// Entry is one migration found on disk
type Entry struct {
	Version int
	Name    string
}

// List returns the up migrations in dir ordered by version. A missing
// directory is empty.
func List(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var out []Entry
	for _, f := range files {
		m := upFile.FindStringSubmatch(f.Name())
		if f.IsDir() || m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Entry{Version: v, Name: m[2]})
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Version - b.Version })
	return out, nil
}
