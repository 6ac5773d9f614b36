package density

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// definitionSchema validates the untyped shape of a function definition
// document before any typed construction is attempted: a definition is a
// number (constant), a string (namespaced reference) or an object with a
// string "type" field. Per-type argument shapes are checked by the builders.
const definitionSchema = `{
	"$id": "axolotl:density/function",
	"oneOf": [
		{"type": "number"},
		{"type": "string", "pattern": "^[a-z0-9_.-]+:[a-z0-9_./-]+$"},
		{
			"type": "object",
			"required": ["type"],
			"properties": {"type": {"type": "string"}}
		}
	]
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

func compiledSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("axolotl:density/function", strings.NewReader(definitionSchema)); err != nil {
			panic(err)
		}
		schema = c.MustCompile("axolotl:density/function")
	})
	return schema
}

// Registry is the shared namespace density functions are loaded into. It
// resolves namespaced references between functions, allowing forward
// references: a definition may refer to a function registered later, as long
// as every reference is satisfied by the time Finish is called.
type Registry struct {
	seed    int64
	noises  map[string]*Noise
	funcs   map[string]*Function
	pending map[string][]*Function
}

// NewRegistry creates an empty registry deriving noise samplers from the
// world seed passed.
func NewRegistry(seed int64) *Registry {
	return &Registry{
		seed:    seed,
		noises:  make(map[string]*Noise),
		funcs:   make(map[string]*Function),
		pending: make(map[string][]*Function),
	}
}

// RegisterNoise registers a named noise sampler available to definitions
// loaded afterwards.
func (r *Registry) RegisterNoise(key string, p NoiseParameters) error {
	if err := checkNamespaceKey(key); err != nil {
		return err
	}
	r.noises[key] = NewNoise(r.seed, key, p)
	return nil
}

// Register builds the definition passed and stores the resulting function
// under the key, resolving any forward references to that key recorded
// earlier.
func (r *Registry) Register(key string, def any) error {
	if err := checkNamespaceKey(key); err != nil {
		return err
	}
	f, err := r.Build(def)
	if err != nil {
		return fmt.Errorf("register %q: %w", key, err)
	}
	r.funcs[key] = f
	for _, ref := range r.pending[key] {
		ref.ref = f
	}
	delete(r.pending, key)
	return nil
}

// Function returns the function registered under the key passed.
func (r *Registry) Function(key string) (*Function, error) {
	f, ok := r.funcs[key]
	if !ok {
		return nil, FunctionNotFoundError{Key: key}
	}
	return f, nil
}

// Finish verifies that every reference recorded during loading has been
// resolved. It must be called once all definitions are registered; an
// unresolved reference aborts generator setup rather than silently
// substituting a default.
func (r *Registry) Finish() error {
	for key := range r.pending {
		return FunctionNotFoundError{Key: key}
	}
	return nil
}

// Build constructs a typed function tree from an untyped definition, as
// produced by encoding/json. Construction fails with a
// MalformedDefinitionError for shape errors, a descriptive error for invalid
// values, or records a pending forward reference for keys not yet registered.
func (r *Registry) Build(def any) (*Function, error) {
	if err := compiledSchema().Validate(def); err != nil {
		return nil, MalformedDefinitionError{Reason: err.Error()}
	}
	return r.build(def)
}

func (r *Registry) build(def any) (*Function, error) {
	switch v := def.(type) {
	case float64:
		return Constant(v), nil
	case int:
		return Constant(float64(v)), nil
	case string:
		return r.buildReference(v)
	case map[string]any:
		return r.buildTyped(v)
	}
	return nil, MalformedDefinitionError{Reason: fmt.Sprintf("unsupported definition of type %T", def)}
}

func (r *Registry) buildReference(key string) (*Function, error) {
	if err := checkNamespaceKey(key); err != nil {
		return nil, err
	}
	ref := &Function{k: kindReference, key: key}
	if target, ok := r.funcs[key]; ok {
		ref.ref = target
	} else {
		r.pending[key] = append(r.pending[key], ref)
	}
	return ref, nil
}

func (r *Registry) buildTyped(m map[string]any) (*Function, error) {
	typ, _ := m["type"].(string)
	switch typ {
	case "constant":
		v, ok := m["argument"].(float64)
		if !ok {
			return nil, MalformedDefinitionError{Reason: "constant: numeric argument required"}
		}
		return Constant(v), nil
	case "clamp":
		arg, err := r.buildChild(m, "input")
		if err != nil {
			return nil, err
		}
		lo, okLo := m["min"].(float64)
		hi, okHi := m["max"].(float64)
		if !okLo || !okHi {
			return nil, MalformedDefinitionError{Reason: "clamp: numeric min and max required"}
		}
		if lo > hi {
			return nil, fmt.Errorf("density: clamp: min %v exceeds max %v", lo, hi)
		}
		return Clamp(arg, lo, hi), nil
	case "abs", "square", "cube", "half_negative", "quarter_negative", "squeeze":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return Unary(unaryOpByName[typ], arg), nil
	case "add", "mul", "min", "max":
		a, err := r.buildChild(m, "argument1")
		if err != nil {
			return nil, err
		}
		b, err := r.buildChild(m, "argument2")
		if err != nil {
			return nil, err
		}
		return Binary(binaryOpByName[typ], a, b), nil
	case "noise":
		key, ok := m["noise"].(string)
		if !ok {
			return nil, MalformedDefinitionError{Reason: "noise: string noise key required"}
		}
		if err := checkNamespaceKey(key); err != nil {
			return nil, err
		}
		n, ok := r.noises[key]
		if !ok {
			return nil, InvalidNamespaceKeyError{Key: key}
		}
		xz, y := 1.0, 1.0
		if v, ok := m["xz_scale"].(float64); ok {
			xz = v
		}
		if v, ok := m["y_scale"].(float64); ok {
			y = v
		}
		return NoiseFunc(n, xz, y), nil
	case "interpolated":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return Interpolated(arg), nil
	case "flat_cache":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return FlatCache(arg), nil
	case "cache_2d":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return TwoDCache(arg), nil
	case "cache_all_in_cell":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return AllInCellCache(arg), nil
	case "cache_once":
		arg, err := r.buildChild(m, "argument")
		if err != nil {
			return nil, err
		}
		return OnceCache(arg), nil
	case "":
		return nil, MalformedDefinitionError{Reason: "missing type field"}
	}
	return nil, MalformedDefinitionError{Reason: fmt.Sprintf("unknown function type %q", typ)}
}

func (r *Registry) buildChild(m map[string]any, field string) (*Function, error) {
	def, ok := m[field]
	if !ok {
		typ, _ := m["type"].(string)
		return nil, MalformedDefinitionError{Reason: fmt.Sprintf("%s: missing %q", typ, field)}
	}
	return r.build(def)
}

var unaryOpByName = map[string]UnaryOp{
	"abs":              OpAbs,
	"square":           OpSquare,
	"cube":             OpCube,
	"half_negative":    OpHalfNegative,
	"quarter_negative": OpQuarterNegative,
	"squeeze":          OpSqueeze,
}

var binaryOpByName = map[string]BinaryOp{
	"add": OpAdd,
	"mul": OpMul,
	"min": OpMin,
	"max": OpMax,
}

func checkNamespaceKey(key string) error {
	ns, path, ok := strings.Cut(key, ":")
	if !ok || ns == "" || path == "" {
		return InvalidNamespaceKeyError{Key: key}
	}
	return nil
}
