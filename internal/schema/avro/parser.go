// Package avro parses and canonicalizes Avro record schemas.
package avro

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hamba/avro/v2"

	"github.com/streamforge/schema-registry/internal/schema"
)

// attributeOrder is the fixed attribute order mandated for canonical text:
// {type, name, namespace, fields, symbols, items, values, size}.
var attributeOrder = []string{"type", "name", "namespace", "fields", "symbols", "items", "values", "size"}

var elidedFields = map[string]bool{
	"doc":     true,
	"aliases": true,
	"default": true,
	"order":   true,
}

var namedTypes = map[string]bool{
	"record": true,
	"error":  true,
	"enum":   true,
	"fixed":  true,
}

var primitiveTypes = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "string": true, "bytes": true,
}

// Parser parses and canonicalizes Avro schema text.
type Parser struct{}

// NewParser returns a Parser for the Avro dialect.
func NewParser() *Parser {
	return &Parser{}
}

// Parse validates text as an Avro schema and returns its canonical form.
// Validation is delegated to hamba/avro/v2; canonicalization is a pure
// textual transform of the parsed JSON tree and does not depend on the
// avro library's own internal normalization.
func (p *Parser) Parse(text string) (schema.ParsedSchema, error) {
	rawSchema, err := avro.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	canonical, err := Canonicalize(text)
	if err != nil {
		// avro.Parse already accepted the text, so this would only fire on
		// a document that is valid Avro JSON shorthand avro.Parse tolerates
		// but encoding/json does not accept verbatim; treat as invalid.
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &ParsedSchema{
		canonical:   canonical,
		fingerprint: Fingerprint(canonical),
		rawSchema:   rawSchema,
	}, nil
}

// Fingerprint returns the SHA-256 hex digest of a canonical schema text.
// It is a pure function of the canonical text, so it can be recomputed
// identically during log replay without storing it in the command.
func Fingerprint(canonicalText string) string {
	sum := sha256.Sum256([]byte(canonicalText))
	return hex.EncodeToString(sum[:])
}

// ParsedSchema is the Avro implementation of schema.ParsedSchema.
type ParsedSchema struct {
	canonical   string
	fingerprint string
	rawSchema   avro.Schema
}

// CanonicalString returns the canonical textual form.
func (s *ParsedSchema) CanonicalString() string { return s.canonical }

// Fingerprint returns the SHA-256 hex digest of the canonical form.
func (s *ParsedSchema) Fingerprint() string { return s.fingerprint }

// RawSchema returns the underlying hamba/avro/v2 schema.
func (s *ParsedSchema) RawSchema() interface{} { return s.rawSchema }

// HasTopLevelField reports whether a top-level record schema declares a
// field with the given name.
func (s *ParsedSchema) HasTopLevelField(field string) bool {
	rec, ok := s.rawSchema.(*avro.RecordSchema)
	if !ok {
		return false
	}
	for _, f := range rec.Fields() {
		if f.Name() == field {
			return true
		}
	}
	return false
}

// Canonicalize re-emits an Avro schema document with whitespace removed,
// attributes in the fixed order {type, name, namespace, fields, symbols,
// items, values, size}, named types resolved to their fully qualified
// name, and doc/aliases/default/order attributes elided. It is a pure
// function: the same input text always yields the same output text.
func Canonicalize(text string) (string, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return "", fmt.Errorf("not valid JSON: %w", err)
	}
	return canonicalizeNode(v, ""), nil
}

// canonicalizeNode renders v in canonical form. ns is the namespace
// inherited from the nearest enclosing named type, used to resolve bare
// type-reference strings to a fully qualified name.
func canonicalizeNode(v interface{}, ns string) string {
	switch val := v.(type) {
	case string:
		return canonicalizeTypeName(val, ns)
	case []interface{}:
		// Union: a JSON array of alternative types.
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = canonicalizeNode(item, ns)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]interface{}:
		return canonicalizeObject(val, ns)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// canonicalizeTypeName quotes a bare type name, resolving named-type
// references (anything that isn't a primitive or a type keyword such as
// "record" or "array") against the enclosing namespace when the reference
// has no namespace of its own.
func canonicalizeTypeName(name, ns string) string {
	if primitiveTypes[name] || namedTypes[name] || name == "array" || name == "map" ||
		strings.Contains(name, ".") || ns == "" {
		return fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("%q", ns+"."+name)
}

func canonicalizeObject(obj map[string]interface{}, ns string) string {
	schemaType, _ := obj["type"].(string)

	ownNamespace := ns
	simpleName, hasName := obj["name"].(string)
	if namedTypes[schemaType] {
		if explicit, ok := obj["namespace"].(string); ok && explicit != "" {
			ownNamespace = explicit
		} else if idx := strings.LastIndex(simpleName, "."); idx >= 0 {
			ownNamespace = simpleName[:idx]
			simpleName = simpleName[idx+1:]
		}
	}

	parts := make([]string, 0, len(obj))
	emitted := make(map[string]bool, len(obj))

	for _, key := range attributeOrder {
		switch key {
		case "type":
			if raw, ok := obj["type"]; ok {
				parts = append(parts, fmt.Sprintf(`"type":%s`, canonicalizeNode(raw, ns)))
				emitted["type"] = true
			}
		case "name":
			if hasName && namedTypes[schemaType] {
				parts = append(parts, fmt.Sprintf(`"name":"%s"`, simpleName))
				emitted["name"] = true
			}
		case "namespace":
			if namedTypes[schemaType] && ownNamespace != "" {
				parts = append(parts, fmt.Sprintf(`"namespace":"%s"`, ownNamespace))
				emitted["namespace"] = true
			}
		case "fields":
			if fields, ok := obj["fields"].([]interface{}); ok {
				fieldParts := make([]string, len(fields))
				for i, f := range fields {
					if fobj, ok := f.(map[string]interface{}); ok {
						fieldParts[i] = canonicalizeField(fobj, ownNamespace)
					}
				}
				parts = append(parts, `"fields":[`+strings.Join(fieldParts, ",")+"]")
				emitted["fields"] = true
			}
		case "symbols":
			if symbols, ok := obj["symbols"].([]interface{}); ok {
				symParts := make([]string, len(symbols))
				for i, s := range symbols {
					symParts[i] = fmt.Sprintf("%q", fmt.Sprintf("%v", s))
				}
				parts = append(parts, `"symbols":[`+strings.Join(symParts, ",")+"]")
				emitted["symbols"] = true
			}
		case "items":
			if items, ok := obj["items"]; ok {
				parts = append(parts, fmt.Sprintf(`"items":%s`, canonicalizeNode(items, ns)))
				emitted["items"] = true
			}
		case "values":
			if values, ok := obj["values"]; ok {
				parts = append(parts, fmt.Sprintf(`"values":%s`, canonicalizeNode(values, ns)))
				emitted["values"] = true
			}
		case "size":
			if size, ok := obj["size"]; ok {
				b, _ := json.Marshal(size)
				parts = append(parts, fmt.Sprintf(`"size":%s`, string(b)))
				emitted["size"] = true
			}
		}
	}

	// Any attribute not in the fixed order and not elided (e.g. a
	// schema-level custom property) is emitted afterward, alphabetically,
	// so no information is silently dropped.
	var rest []string
	for key := range obj {
		if emitted[key] || elidedFields[key] || (key == "namespace" && namedTypes[schemaType]) {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		parts = append(parts, fmt.Sprintf(`"%s":%s`, key, canonicalizeNode(obj[key], ns)))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// canonicalizeField renders a record field as {"type":...,"name":"..."},
// eliding doc/default/order/aliases.
func canonicalizeField(field map[string]interface{}, ns string) string {
	parts := make([]string, 0, 2)
	if typ, ok := field["type"]; ok {
		parts = append(parts, fmt.Sprintf(`"type":%s`, canonicalizeNode(typ, ns)))
	}
	if name, ok := field["name"].(string); ok {
		parts = append(parts, fmt.Sprintf(`"name":"%s"`, name))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
