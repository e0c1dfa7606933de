package analyze

import (
	"encoding/json"

	"github.com/casetrace/casetrace-go/internal/llm"
)

// Response schemas for the typed analyzers. These are the contracts the
// provider must satisfy; the adapter re-validates the decoded records.

const entitySchemaFragment = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "type": {"type": "string", "enum": ["person", "organization", "location", "date", "legal_term"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "context": {"type": "string"},
    "relationship": {"type": "string"},
    "quote": {
      "type": "object",
      "properties": {
        "text": {"type": "string"},
        "speaker": {"type": "string"}
      },
      "required": ["text"]
    },
    "associated_event": {"type": "string"}
  },
  "required": ["name", "type", "confidence"]
}`

var documentSchema = llm.Schema{
	Name: "document_analysis",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "entities": {"type": "array", "items": ` + entitySchemaFragment + `},
    "document_type": {"type": "string", "enum": ["email", "letter", "contract", "filing", "memo", "report", "note", "other"]},
    "sentiment": {"type": "string", "enum": ["hostile", "neutral", "professional"]},
    "legal_significance": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
    "risk_flags": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["summary", "entities", "document_type", "sentiment", "legal_significance", "risk_flags", "confidence"],
  "additionalProperties": false
}`),
}

var imageSchema = llm.Schema{
	Name: "image_analysis",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "scene_description": {"type": "string"},
    "ocr_text": {"type": "string"},
    "detected_objects": {"type": "array", "items": {"type": "string"}},
    "entities": {"type": "array", "items": ` + entitySchemaFragment + `},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["scene_description", "ocr_text", "detected_objects", "confidence"],
  "additionalProperties": false
}`),
}

var emailSchema = llm.Schema{
	Name: "email_analysis",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "thread_summary": {"type": "string"},
    "communication_pattern": {"type": "string", "enum": ["professional", "escalating", "hostile", "retaliatory", "dismissive", "deferential", "neutral"]},
    "escalation_detected": {"type": "boolean"},
    "entities": {"type": "array", "items": ` + entitySchemaFragment + `},
    "legal_significance": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
    "risk_flags": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "deference_scores": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "address": {"type": "string"},
          "score": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["address", "score"]
      }
    }
  },
  "required": ["thread_summary", "communication_pattern", "escalation_detected", "entities", "legal_significance", "risk_flags", "confidence", "deference_scores"],
  "additionalProperties": false
}`),
}
