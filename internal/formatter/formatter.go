// package formatter renders the mod list of an instance as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

const curseForgeModURL = "https://www.curseforge.com/minecraft/mc-mods/"

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension of f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	}
	return ".txt"
}

// ModList is an instance with its installed mods.
type ModList struct {
	Instance *models.InstanceSettings
	Mods     []*models.Mod
}

// ExportToCSV converts a ModList to CSV format with columns: ID, Name, File, FileID, Dependency, SHA1
func ExportToCSV(list *ModList) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "File", "FileID", "Dependency", "SHA1"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range list.Mods {
		record := []string{
			strconv.Itoa(m.ID),
			m.Name,
			m.FileName,
			strconv.Itoa(m.InstalledFileID),
			strconv.FormatBool(m.RelationType == models.RelationRequired),
			m.Hash,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a ModList to a Markdown document linking each mod to its catalog page
func ExportToMarkdown(list *ModList) ([]byte, error) {
	var buf bytes.Buffer
	inst := list.Instance

	fmt.Fprintf(&buf, "# %s\n\n", inst.Title)
	fmt.Fprintf(&buf, "**Minecraft**: %s\n", inst.Versions.Minecraft)
	if v := inst.LoaderVersionName(); v != "" {
		fmt.Fprintf(&buf, "**Loader**: %s\n", v)
	}
	if p := inst.ModPack; p != nil {
		fmt.Fprintf(&buf, "**Mod pack**: %s (file %d)\n", p.Name, p.InstalledFileID)
	}
	fmt.Fprintf(&buf, "**Mods**: %d\n\n", len(list.Mods))

	buf.WriteString("## Mods\n\n")
	for i, m := range list.Mods {
		name := m.Name
		if m.Slug != "" {
			name = fmt.Sprintf("[%s](%s%s)", m.Name, curseForgeModURL, m.Slug)
		}
		suffix := ""
		if m.RelationType == models.RelationRequired {
			suffix = " *(dependency)*"
		}
		fmt.Fprintf(&buf, "%d. %s `%s`%s\n", i+1, name, m.FileName, suffix)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a ModList to plain text format
func ExportToText(list *ModList) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Instance: %s\n", list.Instance.Title)
	fmt.Fprintf(&buf, "Minecraft: %s\n", list.Instance.Versions.Minecraft)
	fmt.Fprintf(&buf, "Mods: %d\n\n", len(list.Mods))

	for i, m := range list.Mods {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, m.Name, m.FileName)
	}

	return buf.Bytes(), nil
}

// Export renders list in format f.
func Export(list *ModList, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(list)
	case FormatMarkdown:
		return ExportToMarkdown(list)
	case FormatText:
		return ExportToText(list)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// WriteExport writes list to path in format f and returns the path written.
//
// Defaults to {dir}/modlist{ext} when path is a directory and to modlist{ext} in the working directory when empty.
func WriteExport(list *ModList, f Format, path string) (string, error) {
	name := "modlist" + f.Extension()
	if path == "" {
		path = name
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, name)
	}

	data, err := Export(list, f)
	if err != nil {
		return "", err
	}

	if err := shared.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return path, nil
}

