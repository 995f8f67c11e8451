package auth

import (
	"fmt"

	"github.com/systmms/templatevault/internal/secure"
)

// Prompter acquires credential values interactively.
type Prompter interface {
	// ReadPlain reads a visible value. ok is false for a blank optional value.
	ReadPlain(label string, required bool) (value string, ok bool, err error)
	// ReadMasked reads a non-blank value without echoing it.
	ReadMasked(label string) (*secure.SecureBuffer, error)
}

// Field declares one value a method prompts for. Masked fields are always
// required; Required only applies to plain fields.
type Field struct {
	Key      string
	Label    string
	Masked   bool
	Required bool
}

// Input holds the values collected for a method's fields, keyed by Field.Key.
type Input struct {
	plain  map[string]string
	masked map[string]*secure.SecureBuffer
}

// Plain returns a collected plain value, empty when it was left blank.
func (in Input) Plain(key string) string {
	return in.plain[key]
}

// Masked returns a collected masked value.
func (in Input) Masked(key string) *secure.SecureBuffer {
	return in.masked[key]
}

func (in Input) destroy() {
	for _, buf := range in.masked {
		buf.Destroy()
	}
}

// Method is a registered auth type: a declarative field list plus a factory
// that assembles the descriptor from the collected input.
type Method struct {
	Name         string
	Description  string
	DefaultMount string
	Fields       []Field
	Build        func(mount string, in Input) Descriptor
}

// MethodInfo is the public listing entry for a method.
type MethodInfo struct {
	Name        string
	Description string
}

// UnknownMethodError is returned by Build for an unregistered identifier.
// Callers validate against Supported first, so this indicates a bug.
type UnknownMethodError struct {
	Name string
}

func (e *UnknownMethodError) Error() string {
	return "unknown auth type: " + e.Name
}

// Registry maps auth type identifiers to methods, preserving registration
// order for listings.
type Registry struct {
	prompter Prompter
	methods  []Method
	index    map[string]int
}

// NewRegistry returns a registry with every built-in method registered.
func NewRegistry(p Prompter) *Registry {
	r := &Registry{
		prompter: p,
		index:    make(map[string]int),
	}
	for _, m := range builtinMethods() {
		r.Register(m)
	}
	return r
}

// Register adds m, replacing any method already registered under its name.
func (r *Registry) Register(m Method) {
	if i, ok := r.index[m.Name]; ok {
		r.methods[i] = m
		return
	}
	r.index[m.Name] = len(r.methods)
	r.methods = append(r.methods, m)
}

// Supported lists the registered methods in registration order.
func (r *Registry) Supported() []MethodInfo {
	infos := make([]MethodInfo, len(r.methods))
	for i, m := range r.methods {
		infos[i] = MethodInfo{Name: m.Name, Description: m.Description}
	}
	return infos
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (Method, bool) {
	i, ok := r.index[name]
	if !ok {
		return Method{}, false
	}
	return r.methods[i], true
}

// Build prompts for every field of the named method, in declared order,
// and assembles its descriptor. A non-empty mountOverride replaces the
// method's default mount.
func (r *Registry) Build(name, mountOverride string) (Descriptor, error) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownMethodError{Name: name}
	}

	in := Input{
		plain:  make(map[string]string),
		masked: make(map[string]*secure.SecureBuffer),
	}
	for _, f := range m.Fields {
		if f.Masked {
			buf, err := r.prompter.ReadMasked(f.Label)
			if err != nil {
				in.destroy()
				return nil, fmt.Errorf("failed to read %s: %w", f.Label, err)
			}
			in.masked[f.Key] = buf
			continue
		}

		value, _, err := r.prompter.ReadPlain(f.Label, f.Required)
		if err != nil {
			in.destroy()
			return nil, fmt.Errorf("failed to read %s: %w", f.Label, err)
		}
		in.plain[f.Key] = value
	}

	mount := m.DefaultMount
	if mountOverride != "" {
		mount = mountOverride
	}
	return m.Build(mount, in), nil
}
