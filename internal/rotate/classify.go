package rotate

import (
	"fmt"
	"slices"
	"strings"
)

var (
	archiveExtensions = []string{".gz", ".bz2", ".zip", ".tgz"}
	logExtensions     = []string{".log"}
)

// Class selects which classification gate an item must pass before it is
// matched.
type Class int

const (
	// ClassAny admits any item carrying a date.
	ClassAny Class = iota
	ClassArchive
	ClassLog
	ClassTable
)

func (c Class) String() string {
	switch c {
	case ClassArchive:
		return "archives"
	case ClassLog:
		return "logs"
	case ClassTable:
		return "tables"
	default:
		return "items"
	}
}

// ParseClass maps a config/CLI word to a Class.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "archives", "archive":
		return ClassArchive, nil
	case "logs", "log":
		return ClassLog, nil
	case "tables", "table":
		return ClassTable, nil
	case "items", "item", "any", "":
		return ClassAny, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q (want archives, logs, items or tables)", s)
	}
}

// IsArchive reports whether item looks like a compressed archive. Volume
// snapshots always do.
func IsArchive(item Item) bool {
	if item.Kind == KindLabeled {
		return true
	}
	return slices.Contains(archiveExtensions, extension(item.Value))
}

// IsLog reports whether item looks like a log file.
func IsLog(item Item) bool {
	return slices.Contains(logExtensions, extension(item.Value))
}

// HasDate reports whether a date can be found in item's name.
func HasDate(item Item) (bool, error) {
	p, err := ParseName(item, false)
	if err != nil {
		return false, err
	}
	return p.HasDate, nil
}

// IsBackupTable reports whether a table name carries a timestamp, which is how
// backup copies of tables are named.
func IsBackupTable(item Item) (bool, error) {
	ok, err := HasDate(item)
	if err != nil {
		return false, fmt.Errorf("parse table name %q: %w", item.Value, err)
	}
	return ok, nil
}

// extension returns the last extension of the final path element. Leading
// dots belong to the name, so ".gz" has no extension.
func extension(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimLeft(name, ".")
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}
