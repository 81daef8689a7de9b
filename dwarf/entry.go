package dwarf

import (
	dw "debug/dwarf"
	"fmt"

	"github.com/wasmlab/typecorpus/errors"
)

// Entry is a cursor over one debugging information entry. It holds only
// the shared data, the entry's offset and its tag, so it is cheap to copy
// and store; attributes are re-read on demand.
type Entry struct {
	d      *Data
	Offset dw.Offset
	Tag    dw.Tag
}

func (d *Data) entryAt(off dw.Offset, tag dw.Tag) Entry {
	return Entry{d: d, Offset: off, Tag: tag}
}

func (e Entry) load() (*dw.Entry, error) {
	r := e.d.dw.Reader()
	r.Seek(e.Offset)
	ent, err := r.Next()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err,
			fmt.Sprintf("read entry at 0x%x", e.Offset))
	}
	if ent == nil {
		return nil, errors.MalformedDebugInfo("no entry at offset 0x%x", e.Offset)
	}
	return ent, nil
}

func (e Entry) field(attr dw.Attr) (*dw.Field, error) {
	ent, err := e.load()
	if err != nil {
		return nil, err
	}
	for i := range ent.Field {
		if ent.Field[i].Attr == attr {
			return &ent.Field[i], nil
		}
	}
	return nil, nil
}

// AttrEntry resolves a reference-class attribute to a cursor over the
// referenced entry. Absent attributes return nil. Non-reference forms
// (supposed to never carry entry references here) are an error rather
// than a silent miss.
func (e Entry) AttrEntry(attr dw.Attr) (*Entry, error) {
	f, err := e.field(attr)
	if err != nil || f == nil {
		return nil, err
	}
	if f.Class != dw.ClassReference {
		return nil, errors.Unsupported(errors.PhaseDebugInfo,
			fmt.Sprintf("attribute %s with non-reference class %s", attr, f.Class))
	}
	off, ok := f.Val.(dw.Offset)
	if !ok {
		return nil, errors.MalformedDebugInfo("reference attribute %s holds %T", attr, f.Val)
	}

	target, err := e.d.tagAt(off)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// tagAt reads just enough of the entry at off to build a cursor for it.
func (d *Data) tagAt(off dw.Offset) (*Entry, error) {
	e := d.entryAt(off, 0)
	ent, err := e.load()
	if err != nil {
		return nil, err
	}
	e.Tag = ent.Tag
	return &e, nil
}

// AttrString returns a string-class attribute, with strp/line_strp/strx
// indirection already resolved. Absent attributes return ok=false.
func (e Entry) AttrString(attr dw.Attr) (string, bool, error) {
	f, err := e.field(attr)
	if err != nil || f == nil {
		return "", false, err
	}
	s, ok := f.Val.(string)
	if !ok {
		return "", false, errors.Unsupported(errors.PhaseDebugInfo,
			fmt.Sprintf("attribute %s with non-string class %s", attr, f.Class))
	}
	return s, true, nil
}

// AttrUint returns an attribute holding an address or an integer
// constant. Absent attributes return ok=false.
func (e Entry) AttrUint(attr dw.Attr) (uint64, bool, error) {
	f, err := e.field(attr)
	if err != nil || f == nil {
		return 0, false, err
	}
	switch v := f.Val.(type) {
	case uint64:
		return v, true, nil
	case int64:
		return uint64(v), true, nil
	default:
		return 0, false, errors.Unsupported(errors.PhaseDebugInfo,
			fmt.Sprintf("attribute %s with non-integer class %s", attr, f.Class))
	}
}

// Children returns cursors for the entry's direct children, not
// descending further.
func (e Entry) Children() ([]Entry, error) {
	ent, err := e.load()
	if err != nil {
		return nil, err
	}
	if !ent.Children {
		return nil, nil
	}

	r := e.d.dw.Reader()
	r.Seek(e.Offset)
	if _, err := r.Next(); err != nil {
		return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err, "re-read parent entry")
	}

	var children []Entry
	for {
		child, err := r.Next()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err, "read child entry")
		}
		if child == nil {
			return nil, errors.MalformedDebugInfo("unterminated children of entry at 0x%x", e.Offset)
		}
		if child.Tag == 0 {
			return children, nil
		}
		children = append(children, e.d.entryAt(child.Offset, child.Tag))
		if child.Children {
			r.SkipChildren()
		}
	}
}
