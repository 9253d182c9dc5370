package watch

import (
	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/sasswatch/internal/pathmap"
)

// Kind is the kind of a filesystem event.
type Kind int

const (
	// KindOther covers removals, renames and attribute changes.
	KindOther Kind = iota
	// KindCreate is a newly created file or directory.
	KindCreate
	// KindModify is a write to an existing file.
	KindModify
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	default:
		return "other"
	}
}

// Event is a filesystem change. Only the first path is inspected.
type Event struct {
	Kind  Kind
	Paths []string
}

// Path returns the first path of the event.
func (e Event) Path() (string, bool) {
	if len(e.Paths) == 0 {
		return "", false
	}

	return e.Paths[0], true
}

func fromFSNotify(e fsnotify.Event) Event {
	kind := KindOther

	switch {
	case e.Has(fsnotify.Create):
		kind = KindCreate
	case e.Has(fsnotify.Write):
		kind = KindModify
	}

	var paths []string
	if e.Name != "" {
		paths = []string{e.Name}
	}

	return Event{Kind: kind, Paths: paths}
}

// Decision is the outcome of filtering an event.
type Decision int

const (
	// Accept means the path should be compiled.
	Accept Decision = iota
	// SkipKind means the event is neither a create nor a modify.
	SkipKind
	// SkipNoPath means the event carried no path.
	SkipNoPath
	// SkipExtension means the path is not a .scss file.
	SkipExtension
	// SkipPartial means the path is a partial.
	SkipPartial
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case SkipKind:
		return "skip-kind"
	case SkipNoPath:
		return "skip-no-path"
	case SkipExtension:
		return "skip-extension"
	case SkipPartial:
		return "skip-partial"
	default:
		return "unknown"
	}
}

// Filter decides whether ev leads to a compilation and returns the path.
func Filter(ev Event) (string, Decision) {
	if ev.Kind != KindCreate && ev.Kind != KindModify {
		return "", SkipKind
	}

	path, ok := ev.Path()
	if !ok {
		return "", SkipNoPath
	}

	switch pathmap.Classify(path) {
	case pathmap.ClassCompilable:
		return path, Accept
	case pathmap.ClassPartial:
		return path, SkipPartial
	default:
		return path, SkipExtension
	}
}
