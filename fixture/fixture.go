// Package fixture decodes a YAML description of a crate graph (crates, ADTs, traits,
// impls and goals to prove) into a types.Tcx.
//
// Types are written as nested nodes:
//
//	i32                                 scalars, str, bool, char, never, ()
//	T                                   a generic parameter in scope, or a non-generic ADT
//	{adt: Vec, args: [T]}
//	{param: T}
//	{int: i32}
//	{ref: {mut: false, ty: str}}
//	{ptr: {mut: true, ty: u8}}
//	{tuple: [i32, bool]}
//	{slice: u8}
//	{array: {ty: u8, len: 4}}
//	{dyn: [Display, Send]}
//	{fnptr: {inputs: [i32], output: bool}}
//	{proj: {self: T, item: Iterator::Item}}
//
// Regions are always 'static.
package fixture

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the decoded form of a fixture document
type File struct {
	Crates []CrateDecl `yaml:"crates"`
	Adts   []AdtDecl   `yaml:"adts"`
	Traits []TraitDecl `yaml:"traits"`
	Impls  []ImplDecl  `yaml:"impls"`
	Goals  []GoalDecl  `yaml:"goals"`
}

type CrateDecl struct {
	Name string `yaml:"name"`
	// Local marks the crate being checked. At most one crate may be local; when none is,
	// a crate named "local" is added.
	Local bool `yaml:"local"`
}

type AdtDecl struct {
	Name  string `yaml:"name"`
	Crate string `yaml:"crate"`
	// Kind is struct (the default), enum or union
	Kind   string   `yaml:"kind"`
	Params []string `yaml:"params"`
	// Variances are written +, -, o or *, one per parameter. Parameters default to covariant.
	Variances   []string      `yaml:"variances"`
	Fields      []Ty          `yaml:"fields"`
	Variants    []VariantDecl `yaml:"variants"`
	Fundamental bool          `yaml:"fundamental"`
	Lang        string        `yaml:"lang"`
	Where       []BoundDecl   `yaml:"where"`
}

type VariantDecl struct {
	Name   string `yaml:"name"`
	Fields []Ty   `yaml:"fields"`
}

type TraitDecl struct {
	Name  string `yaml:"name"`
	Crate string `yaml:"crate"`
	// Params do not include Self
	Params      []string    `yaml:"params"`
	Auto        bool        `yaml:"auto"`
	Marker      bool        `yaml:"marker"`
	Fundamental bool        `yaml:"fundamental"`
	ObjectSafe  *bool       `yaml:"object_safe"`
	Lang        string      `yaml:"lang"`
	Supertraits []BoundDecl `yaml:"supertraits"`
	Assoc       []string    `yaml:"assoc"`
}

type ImplDecl struct {
	Name   string   `yaml:"name"`
	Crate  string   `yaml:"crate"`
	Params []string `yaml:"params"`
	// Trait is empty for inherent impls
	Trait string `yaml:"trait"`
	// Args are the trait's arguments after Self
	Args        []Ty          `yaml:"args"`
	Self        Ty            `yaml:"self"`
	Negative    bool          `yaml:"negative"`
	Reservation bool          `yaml:"reservation"`
	Where       []BoundDecl   `yaml:"where"`
	Assoc       map[string]Ty `yaml:"assoc"`
}

// BoundDecl is a where-clause Ty: Trait<Args>, or <Ty as Trait<Args>>::Item == Eq when
// Item is set. Ty defaults to Self inside traits.
type BoundDecl struct {
	Ty       Ty     `yaml:"ty"`
	Trait    string `yaml:"trait"`
	Args     []Ty   `yaml:"args"`
	Negative bool   `yaml:"negative"`
	Item     string `yaml:"item"`
	Eq       Ty     `yaml:"eq"`
}

type GoalDecl struct {
	BoundDecl `yaml:",inline"`

	Name   string      `yaml:"name"`
	Params []string    `yaml:"params"`
	Where  []BoundDecl `yaml:"where"`
	// Expect is yes, no or ambiguous, and only checked by tests
	Expect string `yaml:"expect"`
	// Coherence proves the goal as the overlap checker would
	Coherence bool `yaml:"coherence"`
}

// Ty holds a type node until the names it mentions can be resolved
type Ty struct {
	node *yaml.Node
}

func (t *Ty) UnmarshalYAML(n *yaml.Node) error {
	t.node = n
	return nil
}

func (t Ty) IsZero() bool {
	return t.node == nil
}

// Decode reads a fixture document, rejecting unknown fields
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	f := &File{}
	if err := dec.Decode(f); err != nil {
		return nil, errors.Wrap(err, "could not decode fixture")
	}
	return f, nil
}

// Parse decodes and lowers a fixture document
func Parse(data []byte) (*Fixture, error) {
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return Lower(f)
}

// Load parses the fixture at path
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read fixture %s", path)
	}
	fx, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return fx, nil
}
