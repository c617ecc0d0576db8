package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns returns the column names from the "db" tags of T.
// Embedded structs (entity.Timestamps, entity.LinkRef) are flattened.
//
// Usage:
//
//	columns := ExtractDBColumns[stock.Batch]()
//	// Returns: ["id", "article_id", "quantity", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))

	cols := make([]string, 0, len(meta.fields))
	for _, fi := range meta.fields {
		cols = append(cols, fi.column)
	}
	for _, emb := range meta.embedded {
		cols = append(cols, columnsOf(emb.typ)...)
	}
	return cols
}

func columnsOf(t reflect.Type) []string {
	meta := metadataFor(t)
	cols := make([]string, 0, len(meta.fields))
	for _, fi := range meta.fields {
		cols = append(cols, fi.column)
	}
	for _, emb := range meta.embedded {
		cols = append(cols, columnsOf(emb.typ)...)
	}
	return cols
}

type fieldInfo struct {
	index  int
	column string
}

type embeddedInfo struct {
	index int
	typ   reflect.Type
}

type typeMetadata struct {
	fields   []fieldInfo
	embedded []embeddedInfo
}

// typeCache holds *typeMetadata per reflect.Type.
var typeCache sync.Map

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.embedded = append(meta.embedded, embeddedInfo{index: i, typ: field.Type})
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, column: tag})
		}
	}

	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct to a column map using "db" tags, ready for
// squirrel's SetMap. Fields without a tag or tagged "-" are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, fi := range meta.fields {
		res[fi.column] = rv.Field(fi.index).Interface()
	}
	for _, emb := range meta.embedded {
		for k, val := range StructToMap(rv.Field(emb.index).Interface()) {
			res[k] = val
		}
	}
	return res
}
