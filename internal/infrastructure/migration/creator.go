package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// Drivers lists the per-driver migration directories kept in lockstep
var Drivers = []string{"postgres", "sqlite"}

var (
	versionPattern = regexp.MustCompile(`^(\d{6})_.+\.up\.sql$`)
	unsafeChars    = regexp.MustCompile(`[^a-z0-9]+`)
)

const upTemplate = `-- Migration: {{.Name}}
-- Driver: {{.Driver}}
-- Description: {{.Description}}

`

const downTemplate = `-- Migration: {{.Name}} (Rollback)
-- Driver: {{.Driver}}

`

// MigrationFile is one up/down pair written for a driver
type MigrationFile struct {
	Version     string
	Name        string
	Driver      string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair for every driver under root,
// numbered one past the highest version found in any driver directory.
func CreateMigration(root, name, description string) ([]MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}

	next, err := nextVersion(root)
	if err != nil {
		return nil, err
	}
	version := fmt.Sprintf("%06d", next)

	created := make([]MigrationFile, 0, len(Drivers))
	for _, driver := range Drivers {
		dir := filepath.Join(root, driver)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create migrations directory: %w", err)
		}
		mf := MigrationFile{
			Version:     version,
			Name:        name,
			Driver:      driver,
			Description: description,
			UpPath:      filepath.Join(dir, version+"_"+base+".up.sql"),
			DownPath:    filepath.Join(dir, version+"_"+base+".down.sql"),
		}
		if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
			return nil, err
		}
		if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
			_ = os.Remove(mf.UpPath)
			return nil, err
		}
		created = append(created, mf)
	}
	return created, nil
}

func nextVersion(root string) (int, error) {
	highest := 0
	for _, driver := range Drivers {
		names, err := ListMigrations(filepath.Join(root, driver))
		if err != nil {
			return 0, err
		}
		for _, n := range names {
			v, _ := strconv.Atoi(n[:6])
			highest = max(highest, v)
		}
	}
	return highest + 1, nil
}

func writeTemplate(path, body string, data MigrationFile) error {
	tmpl, err := template.New("migration").Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// sanitizeName lower-cases name and joins its alphanumeric runs with "_"
func sanitizeName(name string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// ListMigrations returns the base names of the versioned up migrations in
// dir, in version order. A missing directory has no migrations.
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !versionPattern.MatchString(entry.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}
