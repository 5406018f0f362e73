// Package schema validates stored JSON documents before they are trusted.
//
// Documents in the object store can be written by older releases or edited by
// hand, so readers that aggregate many of them (the catalog rebuild, comment
// listing) check each one against a JSON schema and skip what does not match.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Document names a schema-checked document family.
type Document string

const (
	VideoRecord   Document = "video_record"
	CommentThread Document = "comment_thread"
)

// ErrInvalidDocument is returned when a document does not match its schema.
var ErrInvalidDocument = errors.New("document does not match schema")

const videoRecordSchema = `{
  "type": "object",
  "required": ["video_id", "user_id", "title", "upload_date", "file_path"],
  "properties": {
    "video_id": {"type": "string", "minLength": 1},
    "user_id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "maxLength": 255},
    "description": {"type": "string"},
    "upload_date": {"type": "string", "minLength": 1},
    "file_path": {"type": "string", "minLength": 1},
    "file_size": {"type": "integer", "minimum": 0},
    "mime_type": {"type": "string"},
    "views": {"type": "integer", "minimum": 0},
    "likes": {"type": "integer", "minimum": 0},
    "dislikes": {"type": "integer", "minimum": 0},
    "duration": {"type": "string"},
    "status": {"type": "string"},
    "thumbnail_path": {"type": "string"},
    "thumbnail_mime_type": {"type": "string"},
    "quality_variants": {
      "type": "object",
      "patternProperties": {
        "^[0-9]+p$": {
          "type": "object",
          "required": ["path"],
          "properties": {
            "path": {"type": "string"},
            "resolution": {"type": "string"},
            "bitrate": {"type": "string"}
          }
        }
      },
      "additionalProperties": false
    },
    "highest_quality": {"type": "string"}
  }
}`

const commentThreadSchema = `{
  "type": "object",
  "required": ["video_id", "comments"],
  "properties": {
    "video_id": {"type": "string"},
    "comments": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "user_id", "text"],
        "properties": {
          "id": {"type": "string"},
          "user_id": {"type": "string"},
          "display_name": {"type": "string"},
          "text": {"type": "string"},
          "date": {"type": "string"},
          "likes": {"type": "integer", "minimum": 0},
          "replies": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["id", "user_id", "text"]
            }
          }
        }
      }
    }
  }
}`

// Validator holds the compiled schemas.
type Validator struct {
	schemas map[Document]*gojsonschema.Schema
}

// NewValidator compiles every known document schema.
func NewValidator() (*Validator, error) {
	v := &Validator{
		schemas: make(map[Document]*gojsonschema.Schema),
	}

	sources := map[Document]string{
		VideoRecord:   videoRecordSchema,
		CommentThread: commentThreadSchema,
	}
	for doc, src := range sources {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", doc, err)
		}
		v.schemas[doc] = compiled
	}

	return v, nil
}

// MustNewValidator is NewValidator for package-level wiring; it panics on a broken schema.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks raw JSON against the schema of doc.
// Schema violations wrap ErrInvalidDocument; malformed JSON is reported as-is.
func (v *Validator) Validate(doc Document, data []byte) error {
	compiled, ok := v.schemas[doc]
	if !ok {
		return fmt.Errorf("unknown document type: %s", doc)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	return nil
}
