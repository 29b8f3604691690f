package rotate

import "time"

// Kind tags which shape of backup artifact an Item was built from.
type Kind uint8

const (
	// KindPlain is a bare name: a file name or a table name.
	KindPlain Kind = iota
	// KindKeyed is an object-storage key.
	KindKeyed
	// KindLabeled is a described artifact such as a volume snapshot.
	KindLabeled
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindKeyed:
		return "keyed"
	case KindLabeled:
		return "labeled"
	default:
		return "unknown"
	}
}

// Item is a reference to one backup artifact offered to the engine.
// Collaborators build it explicitly; the engine never mutates it.
type Item struct {
	Kind Kind
	// Value is the plain name, the object key or the descriptive label.
	Value string
	// StartTime is an optional secondary time source (a snapshot's creation
	// timestamp), kept whatever supplied the name.
	StartTime string
	// ID is the collaborator's handle for deleting the artifact. Empty means
	// Value doubles as the handle.
	ID string

	Size    int64
	ModTime time.Time
}

func Plain(name string) Item { return Item{Kind: KindPlain, Value: name} }

func Keyed(key string) Item { return Item{Kind: KindKeyed, Value: key, ID: key} }

// Labeled builds a described artifact. startTime may be empty.
func Labeled(id, label, startTime string) Item {
	return Item{Kind: KindLabeled, Value: label, StartTime: startTime, ID: id}
}

// Resolve returns the effective name used for pattern matching and the
// alternate time source, if any.
func (i Item) Resolve() (name string, alt string) {
	return i.Value, i.StartTime
}

// Handle returns the identifier a deletion sink should act on.
func (i Item) Handle() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Value
}

func (i Item) String() string { return i.Value }

// Items wraps plain names, mostly for tests and ad-hoc callers.
func Items(names ...string) []Item {
	out := make([]Item, 0, len(names))
	for _, n := range names {
		out = append(out, Plain(n))
	}
	return out
}
