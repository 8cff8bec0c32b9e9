// Package archive classifies extracted archive members and fans them out to
// the log, YAML and tool-log parsers. Extraction itself is external: the
// package consumes an already-flat list of {path, content} entries.
package archive

import (
	"path"
	"regexp"
	"strings"
)

// File is one extracted archive member.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DefaultSniffLimit bounds how much of a member is inspected during
// classification, guarding against multi-megabyte unrelated files.
const DefaultSniffLimit = 8 * 1024

// Buckets is the classified view of an archive.
type Buckets struct {
	Logs  []File
	YAMLs []File
	Tool  []File
	// Unclassified counts members matching no signature. They are dropped
	// from the output but surfaced in the result stats.
	Unclassified int
}

// yamlKindRe tolerates leading indentation and a List suffix so wrapped
// documents (kind: PlanList, or items inside a kind: List) still classify.
var yamlKindRe = regexp.MustCompile(`(?m)^\s*kind:\s*(Plan|NetworkMap|StorageMap)(List)?\s*$`)

// Classify buckets files by inspecting a bounded content prefix.
func Classify(files []File, sniffLimit int) Buckets {
	if sniffLimit <= 0 {
		sniffLimit = DefaultSniffLimit
	}
	var b Buckets
	for _, f := range files {
		prefix := f.Content
		if len(prefix) > sniffLimit {
			prefix = prefix[:sniffLimit]
		}
		switch {
		case isControllerLog(f.Path, prefix):
			b.Logs = append(b.Logs, f)
		case isPlatformYAML(prefix):
			b.YAMLs = append(b.YAMLs, f)
		case isToolLog(f.Path, prefix):
			b.Tool = append(b.Tool, f)
		default:
			b.Unclassified++
		}
	}
	return b
}

// isControllerLog matches the structured controller-log signature, with a
// path-hint fallback for logs whose sniffed prefix is a truncated record.
func isControllerLog(filePath, prefix string) bool {
	if strings.Contains(prefix, `"logger":`) && strings.Contains(prefix, `"msg":`) {
		return true
	}
	base := path.Base(filePath)
	if strings.Contains(base, "controller") || strings.HasSuffix(base, ".log") {
		return strings.HasPrefix(strings.TrimSpace(firstLine(prefix)), "{") ||
			strings.HasPrefix(strings.TrimSpace(prefix), "{")
	}
	return false
}

// isPlatformYAML matches documents of the platform API group carrying one
// of the recognized kinds.
func isPlatformYAML(prefix string) bool {
	return strings.Contains(prefix, "forklift.konveyor.io") && yamlKindRe.MatchString(prefix)
}

// isToolLog matches the sibling disk-conversion tool's output, which is
// dispatched to its own parser.
func isToolLog(filePath, prefix string) bool {
	if strings.Contains(path.Base(filePath), "virt-v2v") {
		return true
	}
	return strings.Contains(prefix, "virt-v2v:")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
