// Package avro implements structural Avro reader/writer compatibility
// checking.
package avro

import (
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/streamforge/schema-registry/internal/compatibility"
)

// Checker implements compatibility.SchemaChecker for Avro schemas.
type Checker struct{}

// NewChecker returns an Avro structural compatibility checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check checks whether data written with the writer schema can be read
// with the reader schema.
func (c *Checker) Check(reader, writer string) *compatibility.Result {
	readerSchema, err := avro.Parse(reader)
	if err != nil {
		return compatibility.NewIncompatibleResult(fmt.Sprintf("invalid reader schema: %v", err))
	}
	writerSchema, err := avro.Parse(writer)
	if err != nil {
		return compatibility.NewIncompatibleResult(fmt.Sprintf("invalid writer schema: %v", err))
	}
	return c.checkSchemas(readerSchema, writerSchema, "")
}

func (c *Checker) checkSchemas(reader, writer avro.Schema, path string) *compatibility.Result {
	result := compatibility.NewCompatibleResult()

	if reader.Type() != writer.Type() {
		if !canPromote(writer, reader) {
			if reader.Type() == avro.Union {
				return c.checkReaderUnion(reader, writer, path)
			}
			if writer.Type() == avro.Union {
				return c.checkWriterUnion(reader, writer, path)
			}
			result.AddMessage("%s: type mismatch: reader has %s, writer has %s",
				pathOrRoot(path), reader.Type(), writer.Type())
			return result
		}
		// Promotable primitive widening: compatible as-is.
		return result
	}

	switch reader.Type() {
	case avro.Record:
		return c.checkRecord(reader.(*avro.RecordSchema), writer.(*avro.RecordSchema), path)
	case avro.Enum:
		return c.checkEnum(reader.(*avro.EnumSchema), writer.(*avro.EnumSchema), path)
	case avro.Array:
		return c.checkArray(reader.(*avro.ArraySchema), writer.(*avro.ArraySchema), path)
	case avro.Map:
		return c.checkMap(reader.(*avro.MapSchema), writer.(*avro.MapSchema), path)
	case avro.Union:
		return c.checkUnion(reader.(*avro.UnionSchema), writer.(*avro.UnionSchema), path)
	case avro.Fixed:
		return c.checkFixed(reader.(*avro.FixedSchema), writer.(*avro.FixedSchema), path)
	default:
		// Primitive types of matching kind: already compatible.
		return result
	}
}

func (c *Checker) checkRecord(reader, writer *avro.RecordSchema, path string) *compatibility.Result {
	result := compatibility.NewCompatibleResult()

	if reader.FullName() != writer.FullName() && !namesMatchViaAlias(reader, writer) {
		result.AddMessage("%s: record name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName())
		return result
	}

	writerFields := make(map[string]*avro.Field, len(writer.Fields()))
	for _, f := range writer.Fields() {
		writerFields[f.Name()] = f
	}

	for _, rf := range reader.Fields() {
		fieldPath := appendPath(path, rf.Name())
		wf, ok := writerFields[rf.Name()]
		if !ok {
			if !rf.HasDefault() {
				result.AddMessage("%s: reader field '%s' has no default and is missing from writer",
					pathOrRoot(path), rf.Name())
			}
			continue
		}
		result.Merge(c.checkSchemas(rf.Type(), wf.Type(), fieldPath))
	}

	return result
}

func namesMatchViaAlias(reader, writer *avro.RecordSchema) bool {
	for _, alias := range writer.Aliases() {
		if reader.FullName() == alias {
			return true
		}
	}
	for _, alias := range reader.Aliases() {
		if writer.FullName() == alias {
			return true
		}
	}
	return false
}

func (c *Checker) checkEnum(reader, writer *avro.EnumSchema, path string) *compatibility.Result {
	result := compatibility.NewCompatibleResult()

	if reader.FullName() != writer.FullName() {
		result.AddMessage("%s: enum name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName())
		return result
	}

	readerSymbols := make(map[string]bool, len(reader.Symbols()))
	for _, s := range reader.Symbols() {
		readerSymbols[s] = true
	}
	for _, ws := range writer.Symbols() {
		if !readerSymbols[ws] && reader.Default() == "" {
			result.AddMessage("%s: writer enum symbol '%s' not found in reader and no default set",
				pathOrRoot(path), ws)
		}
	}

	return result
}

func (c *Checker) checkArray(reader, writer *avro.ArraySchema, path string) *compatibility.Result {
	return c.checkSchemas(reader.Items(), writer.Items(), appendPath(path, "[]"))
}

func (c *Checker) checkMap(reader, writer *avro.MapSchema, path string) *compatibility.Result {
	return c.checkSchemas(reader.Values(), writer.Values(), appendPath(path, "{}"))
}

func (c *Checker) checkUnion(reader, writer *avro.UnionSchema, path string) *compatibility.Result {
	result := compatibility.NewCompatibleResult()
	for _, wt := range writer.Types() {
		found := false
		for _, rt := range reader.Types() {
			if c.checkSchemas(rt, wt, path).IsCompatible {
				found = true
				break
			}
		}
		if !found {
			result.AddMessage("%s: writer union type %s is not compatible with any reader union type",
				pathOrRoot(path), wt.Type())
		}
	}
	return result
}

func (c *Checker) checkReaderUnion(reader, writer avro.Schema, path string) *compatibility.Result {
	union := reader.(*avro.UnionSchema)
	for _, rt := range union.Types() {
		if c.checkSchemas(rt, writer, path).IsCompatible {
			return compatibility.NewCompatibleResult()
		}
	}
	return compatibility.NewIncompatibleResult(
		fmt.Sprintf("%s: writer type %s is not compatible with any type in reader union",
			pathOrRoot(path), writer.Type()))
}

func (c *Checker) checkWriterUnion(reader, writer avro.Schema, path string) *compatibility.Result {
	union := writer.(*avro.UnionSchema)
	for _, wt := range union.Types() {
		result := c.checkSchemas(reader, wt, path)
		if !result.IsCompatible {
			return compatibility.NewIncompatibleResult(
				fmt.Sprintf("%s: reader type %s cannot read writer union type %s",
					pathOrRoot(path), reader.Type(), wt.Type()))
		}
	}
	return compatibility.NewCompatibleResult()
}

func (c *Checker) checkFixed(reader, writer *avro.FixedSchema, path string) *compatibility.Result {
	result := compatibility.NewCompatibleResult()
	if reader.FullName() != writer.FullName() {
		result.AddMessage("%s: fixed name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName())
	}
	if reader.Size() != writer.Size() {
		result.AddMessage("%s: fixed size mismatch: reader has %d, writer has %d",
			pathOrRoot(path), reader.Size(), writer.Size())
	}
	return result
}

// canPromote reports whether a value of the writer's type can be read as
// the reader's type under Avro's numeric widening and string/bytes rules:
// int -> long, float, double; long -> float, double; float -> double;
// string <-> bytes.
func canPromote(writer, reader avro.Schema) bool {
	switch writer.Type() {
	case avro.Int:
		return reader.Type() == avro.Long || reader.Type() == avro.Float || reader.Type() == avro.Double
	case avro.Long:
		return reader.Type() == avro.Float || reader.Type() == avro.Double
	case avro.Float:
		return reader.Type() == avro.Double
	case avro.String:
		return reader.Type() == avro.Bytes
	case avro.Bytes:
		return reader.Type() == avro.String
	default:
		return false
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func appendPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
