// Package fn implements sydraQL's function registry per spec.md §4.9: a
// static, process-wide, load-once table of signatures consulted by the
// validator and (eventually) a typed planner. Grounded on spec.md §9's
// "global mutable state... treated as process-wide, load-once,
// read-mostly state initialized at engine boot" note.
package fn

import "github.com/pkg/errors"

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrArityMismatch    = errors.New("arity mismatch")
	ErrTypeMismatch     = errors.New("type mismatch")
)

// Kind classifies how a function participates in the pipeline.
type Kind int

const (
	KindScalar Kind = iota
	KindAggregate
	KindWindow
	KindFill
)

// TypeTag enumerates the value domains the type system reasons about.
type TypeTag int

const (
	TypeAny TypeTag = iota
	TypeNull
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeNumeric
	TypeValue
	TypeString
	TypeTimestamp
	TypeDuration
	TypeTags
)

// Type is a tag plus nullability.
type Type struct {
	Tag      TypeTag
	Nullable bool
}

// Param describes one formal parameter.
type Param struct {
	Expectation Type
	Optional    bool
	Variadic    bool
}

// ReturnKind distinguishes a fixed return type from one derived from an
// argument's actual type.
type ReturnKind int

const (
	ReturnFixed ReturnKind = iota
	ReturnSameAs
)

// ReturnStrategy computes a call's result type.
type ReturnStrategy struct {
	Kind              ReturnKind
	Fixed             Type
	ArgIndex          int
	ForceNonNullable  bool
}

// Hints records planner-relevant behavior flags.
type Hints struct {
	Streaming          bool
	RequiresSortedInput bool
	NeedsWindowFrame   bool
	BucketSensitive    bool
}

// Signature is one function's full static description.
type Signature struct {
	Name     string
	Kind     Kind
	Params   []Param
	Return   ReturnStrategy
	Hints    Hints
}

// Registry is the static, read-only function table.
type Registry struct {
	byName map[string]Signature
}

// Has reports whether name resolves to a known function (case-insensitive).
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[lower(name)]
	return ok
}

// Lookup returns the signature for name, if any.
func (r *Registry) Lookup(name string) (Signature, bool) {
	sig, ok := r.byName[lower(name)]
	return sig, ok
}

// Resolve performs an arity check (min = non-optional param count, max =
// none if the last param is variadic else len(params)) and a per-position
// expectation match against argTypes, then computes the return type, per
// spec.md §4.9.
func (r *Registry) Resolve(name string, argTypes []Type) (Type, error) {
	sig, ok := r.Lookup(name)
	if !ok {
		return Type{}, errors.Wrapf(ErrUnknownFunction, "'%s'", name)
	}

	min := 0
	variadic := false
	for _, p := range sig.Params {
		if !p.Optional {
			min++
		}
		if p.Variadic {
			variadic = true
		}
	}
	max := len(sig.Params)

	if len(argTypes) < min || (!variadic && len(argTypes) > max) {
		return Type{}, errors.Wrapf(ErrArityMismatch, "%s: got %d args", name, len(argTypes))
	}

	for i, actual := range argTypes {
		var p Param
		if i < len(sig.Params) {
			p = sig.Params[i]
		} else {
			p = sig.Params[len(sig.Params)-1] // variadic tail reuses last param
		}
		if !expectationMatches(p.Expectation, actual) {
			return Type{}, errors.Wrapf(ErrTypeMismatch, "%s: arg %d", name, i)
		}
	}

	switch sig.Return.Kind {
	case ReturnFixed:
		return sig.Return.Fixed, nil
	case ReturnSameAs:
		idx := sig.Return.ArgIndex
		if idx < 0 || idx >= len(argTypes) {
			return sig.Return.Fixed, nil
		}
		t := argTypes[idx]
		if sig.Return.ForceNonNullable {
			t.Nullable = false
		}
		return t, nil
	default:
		return Type{}, errors.New("unhandled return strategy")
	}
}

// expectationMatches implements spec.md §4.9's tag-acceptance relation:
// numeric accepts integer/float/value, value accepts integer/float/
// numeric, duration accepts numeric, timestamp accepts value, any accepts
// everything, and a non-nullable expectation rejects a nullable null
// literal actual.
func expectationMatches(expect, actual Type) bool {
	if actual.Tag == TypeNull {
		return expect.Nullable || expect.Tag == TypeNull || expect.Tag == TypeAny
	}
	if actual.Nullable && !expect.Nullable && expect.Tag != TypeAny {
		return false
	}

	if expect.Tag == TypeAny {
		return true
	}
	if expect.Tag == actual.Tag {
		return true
	}

	switch expect.Tag {
	case TypeNumeric:
		return actual.Tag == TypeInteger || actual.Tag == TypeFloat || actual.Tag == TypeValue
	case TypeValue:
		return actual.Tag == TypeInteger || actual.Tag == TypeFloat || actual.Tag == TypeNumeric
	case TypeDuration:
		return actual.Tag == TypeNumeric || actual.Tag == TypeInteger || actual.Tag == TypeFloat
	case TypeTimestamp:
		return actual.Tag == TypeValue || actual.Tag == TypeInteger
	default:
		return false
	}
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func fixed(tag TypeTag, nullable bool) ReturnStrategy {
	return ReturnStrategy{Kind: ReturnFixed, Fixed: Type{Tag: tag, Nullable: nullable}}
}

func sameAs(argIndex int, forceNonNullable bool) ReturnStrategy {
	return ReturnStrategy{Kind: ReturnSameAs, ArgIndex: argIndex, ForceNonNullable: forceNonNullable}
}

func req(tag TypeTag) Param           { return Param{Expectation: Type{Tag: tag}} }
func reqNullable(tag TypeTag) Param   { return Param{Expectation: Type{Tag: tag, Nullable: true}} }
func opt(tag TypeTag) Param           { return Param{Expectation: Type{Tag: tag}, Optional: true} }
func variadic(tag TypeTag) Param      { return Param{Expectation: Type{Tag: tag}, Variadic: true} }

// NewRegistry builds the fixed, at-minimum function table mandated by
// spec.md §4.9.
func NewRegistry() *Registry {
	sigs := []Signature{
		{Name: "avg", Kind: KindAggregate, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, true),
			Hints: Hints{Streaming: true}},
		{Name: "sum", Kind: KindAggregate, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false),
			Hints: Hints{Streaming: true}},
		{Name: "min", Kind: KindAggregate, Params: []Param{req(TypeNumeric)}, Return: sameAs(0, true),
			Hints: Hints{Streaming: true}},
		{Name: "max", Kind: KindAggregate, Params: []Param{req(TypeNumeric)}, Return: sameAs(0, true),
			Hints: Hints{Streaming: true}},
		{Name: "count", Kind: KindAggregate, Params: []Param{opt(TypeAny)}, Return: fixed(TypeInteger, false),
			Hints: Hints{Streaming: true}},
		{Name: "first", Kind: KindAggregate, Params: []Param{req(TypeAny)}, Return: sameAs(0, false),
			Hints: Hints{RequiresSortedInput: true}},
		{Name: "last", Kind: KindAggregate, Params: []Param{req(TypeAny)}, Return: sameAs(0, false),
			Hints: Hints{RequiresSortedInput: true}},
		{Name: "percentile", Kind: KindAggregate, Params: []Param{req(TypeNumeric), req(TypeFloat)},
			Return: fixed(TypeFloat, true), Hints: Hints{RequiresSortedInput: true}},

		{Name: "abs", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: sameAs(0, false)},
		{Name: "ceil", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "floor", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "round", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "pow", Kind: KindScalar, Params: []Param{req(TypeNumeric), req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "ln", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "sqrt", Kind: KindScalar, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, false)},
		{Name: "now", Kind: KindScalar, Params: nil, Return: fixed(TypeTimestamp, false)},
		{Name: "time_bucket", Kind: KindScalar, Params: []Param{req(TypeNumeric), req(TypeTimestamp)},
			Return: fixed(TypeInteger, false), Hints: Hints{BucketSensitive: true}},

		{Name: "lag", Kind: KindWindow, Params: []Param{req(TypeValue), opt(TypeInteger)}, Return: sameAs(0, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "lead", Kind: KindWindow, Params: []Param{req(TypeValue), opt(TypeInteger)}, Return: sameAs(0, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "rate", Kind: KindWindow, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "irate", Kind: KindWindow, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "delta", Kind: KindWindow, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "integral", Kind: KindWindow, Params: []Param{req(TypeNumeric)}, Return: fixed(TypeFloat, true),
			Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "moving_avg", Kind: KindWindow, Params: []Param{req(TypeNumeric), req(TypeInteger)},
			Return: fixed(TypeFloat, true), Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},
		{Name: "ema", Kind: KindWindow, Params: []Param{req(TypeNumeric), req(TypeFloat)},
			Return: fixed(TypeFloat, true), Hints: Hints{NeedsWindowFrame: true, RequiresSortedInput: true}},

		{Name: "coalesce", Kind: KindFill, Params: []Param{variadic(TypeValue)}, Return: fixed(TypeValue, false)},
		{Name: "fill_forward", Kind: KindFill, Params: []Param{reqNullable(TypeValue)}, Return: fixed(TypeValue, false),
			Hints: Hints{RequiresSortedInput: true}},
	}

	byName := make(map[string]Signature, len(sigs))
	for _, s := range sigs {
		byName[lower(s.Name)] = s
	}
	return &Registry{byName: byName}
}

// Default is the process-wide, load-once registry instance (spec.md §9:
// "the function registry... treated as process-wide, load-once,
// read-mostly state initialized at engine boot").
var Default = NewRegistry()
