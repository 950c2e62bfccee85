// Package catalog loads the control catalog: the mapping from control
// names (checkbox, slider, date_input, ...) to their wire kind, value
// format, and declaration default. The catalog is written in CUE so the
// schema constrains entries at load time.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/lucidrun/lucid/internal/wire"
)

//go:embed builtin.cue
var builtinSource string

// Control describes one catalog entry. Default is normalized into the
// payload domain of the control's wire kind.
type Control struct {
	Name    string
	Kind    wire.Kind
	Format  string
	Default any
}

// Catalog is an immutable set of controls, keyed by name.
type Catalog struct {
	controls map[string]Control
	names    []string
}

// LoadBuiltin parses the embedded built-in catalog.
func LoadBuiltin() (*Catalog, error) {
	return Load(builtinSource)
}

// Load parses a catalog from CUE source. Uses CUE SDK's Go API directly
// (not CLI subprocess).
func Load(source string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	controlsVal := v.LookupPath(cue.ParsePath("controls"))
	if !controlsVal.Exists() {
		return nil, &CatalogError{
			Field:   "controls",
			Message: "controls section is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := controlsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{controls: make(map[string]Control)}
	for iter.Next() {
		ctrl, err := parseControl(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		cat.controls[ctrl.Name] = ctrl
		cat.names = append(cat.names, ctrl.Name)
	}
	sort.Strings(cat.names)
	return cat, nil
}

// parseControl decodes one catalog entry and validates its default
// against the declared wire kind by round-tripping it through the wire
// encoding.
func parseControl(name string, v cue.Value) (Control, error) {
	ctrl := Control{Name: name}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return ctrl, &CatalogError{
			Field:   fmt.Sprintf("controls.%s.kind", name),
			Message: "kind is required",
			Pos:     v.Pos(),
		}
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return ctrl, formatCUEError(err)
	}
	ctrl.Kind = wire.Kind(kindStr)
	if !ctrl.Kind.Valid() {
		return ctrl, &CatalogError{
			Field:   fmt.Sprintf("controls.%s.kind", name),
			Message: fmt.Sprintf("unsupported value kind %q", kindStr),
			Pos:     kindVal.Pos(),
		}
	}

	formatVal := v.LookupPath(cue.ParsePath("format"))
	if formatVal.Exists() {
		ctrl.Format, err = formatVal.String()
		if err != nil {
			return ctrl, formatCUEError(err)
		}
	}

	defVal := v.LookupPath(cue.ParsePath("default"))
	if !defVal.Exists() {
		return ctrl, &CatalogError{
			Field:   fmt.Sprintf("controls.%s.default", name),
			Message: "default is required",
			Pos:     v.Pos(),
		}
	}
	raw, err := goValue(defVal)
	if err != nil {
		return ctrl, err
	}
	ws, err := wire.New(name, ctrl.Kind, raw)
	if err != nil {
		return ctrl, &CatalogError{
			Field:   fmt.Sprintf("controls.%s.default", name),
			Message: err.Error(),
			Pos:     defVal.Pos(),
		}
	}
	ctrl.Default, err = ws.Payload()
	if err != nil {
		return ctrl, &CatalogError{
			Field:   fmt.Sprintf("controls.%s.default", name),
			Message: err.Error(),
			Pos:     defVal.Pos(),
		}
	}
	return ctrl, nil
}

// goValue converts a concrete CUE value into the Go value domain used by
// the wire encoding: int64, float64, string, bool, []byte, []any, and
// map[string]any.
func goValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			e, err := goValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			e, err := goValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = e
		}
		return out, nil
	default:
		return nil, &CatalogError{
			Field:   "default",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// Lookup returns the control registered under name.
func (c *Catalog) Lookup(name string) (Control, bool) {
	ctrl, ok := c.controls[name]
	return ctrl, ok
}

// Names returns all control names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Controls returns all entries in name order.
func (c *Catalog) Controls() []Control {
	out := make([]Control, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.controls[name])
	}
	return out
}

// Len returns the number of controls in the catalog.
func (c *Catalog) Len() int {
	return len(c.controls)
}

// CatalogError represents a catalog load error with source position.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CatalogError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
