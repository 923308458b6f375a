package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrSchemaParse is returned when a state schema is not a usable JSON Schema document
var ErrSchemaParse = errors.New("state schema could not be parsed")

// Violation describes one place where a state document breaks its schema
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}

	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Compiled is a parsed schema ready to check state documents against
type Compiled struct {
	resolved *jsonschema.Resolved
}

// Validator checks session state against game state schemas.
// Compiled schemas are cached by content hash, so repeated checks against
// the same game definition only parse the schema once.
type Validator struct {
	mu    sync.RWMutex
	cache map[[32]byte]*Compiled
}

// New creates a validator with an empty compile cache
func New() *Validator {
	return &Validator{
		cache: make(map[[32]byte]*Compiled),
	}
}

// IsEmptySchema reports whether the schema places no constraints on state
func IsEmptySchema(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	switch string(trimmed) {
	case "", "null", "true":
		return true
	}

	return isEmptyObject(trimmed)
}

// IsEmptyState reports whether a state document should skip validation
func IsEmptyState(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	switch string(trimmed) {
	case "", "null":
		return true
	}

	return isEmptyObject(trimmed)
}

func isEmptyObject(doc []byte) bool {
	if len(doc) < 2 || doc[0] != '{' {
		return false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc, &obj); err != nil {
		return false
	}

	return len(obj) == 0
}

// Compile parses a schema document. An empty schema compiles to nil.
func Compile(doc json.RawMessage) (*Compiled, error) {
	if IsEmptySchema(doc) {
		return nil, nil
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaParse, trimJSONPrefix(err))
	}

	// Older draft identifiers are evaluated with 2020-12 rules.
	s.Schema = ""

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaParse, err)
	}

	return &Compiled{resolved: resolved}, nil
}

// Check validates a state document against the compiled schema
func (c *Compiled) Check(state json.RawMessage) ([]Violation, error) {
	if c == nil || IsEmptyState(state) {
		return nil, nil
	}

	var instance any
	if err := json.Unmarshal(state, &instance); err != nil {
		return nil, fmt.Errorf("state is not valid JSON: %w", err)
	}

	if err := c.resolved.Validate(instance); err != nil {
		return []Violation{toViolation(err)}, nil
	}

	return nil, nil
}

// Validate checks a state document against a schema document, compiling and
// caching the schema on first use
func (v *Validator) Validate(schemaDoc, state json.RawMessage) ([]Violation, error) {
	if IsEmptySchema(schemaDoc) || IsEmptyState(state) {
		return nil, nil
	}

	compiled, err := v.compiled(schemaDoc)
	if err != nil {
		return nil, err
	}

	return compiled.Check(state)
}

func (v *Validator) compiled(doc json.RawMessage) (*Compiled, error) {
	key := sha256.Sum256(bytes.TrimSpace(doc))

	v.mu.RLock()
	c, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := Compile(doc)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[key] = c
	v.mu.Unlock()

	return c, nil
}

// toViolation turns a jsonschema validation error chain into a violation.
// The library prefixes each nested schema with "validating <location>: ",
// the last prefix names the failing node.
func toViolation(err error) Violation {
	msg := err.Error()
	path := ""

	for strings.HasPrefix(msg, "validating ") {
		rest := strings.TrimPrefix(msg, "validating ")
		idx := strings.Index(rest, ": ")
		if idx < 0 {
			break
		}
		path = rest[:idx]
		msg = rest[idx+2:]
	}

	return Violation{Path: path, Message: msg}
}

func trimJSONPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), "json: ")
}
