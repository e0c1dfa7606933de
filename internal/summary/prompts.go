package summary

import (
	"encoding/json"

	"github.com/casetrace/casetrace-go/internal/llm"
)

// Case-type prompts. Each frames the same structured task with the legal
// posture the case type implies.
var executivePrompts = map[string]string{
	"generic": `You are a forensic analyst preparing an executive case summary for legal review.
Synthesize the evidence findings into a coherent narrative. Every finding must be
traceable to the evidence provided. State uncertainty explicitly; never speculate
beyond the record.`,

	"workplace": `You are a forensic analyst specializing in workplace investigations.
Synthesize the evidence into an executive summary for an HR-legal audience. Pay
particular attention to conduct patterns, escalation chains, policy breaches and
the treatment of complaints. Every finding must be traceable to the evidence.`,

	"employment": `You are a forensic analyst specializing in employment disputes.
Synthesize the evidence into an executive summary suitable for tribunal preparation.
Focus on the sequence of protected acts, employer responses, procedural fairness
and potential unfair-dismissal or victimisation exposure. Every finding must be
traceable to the evidence.`,

	"contract": `You are a forensic analyst specializing in contract disputes.
Synthesize the evidence into an executive summary focused on formation, performance,
breach and quantum. Identify which obligations the record shows were met, disputed
or broken. Every finding must be traceable to the evidence.`,
}

const chunkPrompt = `You are a forensic analyst summarizing one batch of evidence from a larger case.
Extract the findings, legal implications and recommended actions supported by this
batch alone. Be specific and cite filenames. Do not invent context from outside
the batch.`

const reducePrompt = `You are a forensic analyst producing the final executive summary of a case from
batch-level findings prepared earlier. Merge overlapping findings, resolve the
overall narrative arc, and keep only implications and actions the combined record
supports.`

var executiveSchema = llm.Schema{
	Name: "executive_summary",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "narrative": {"type": "string"},
    "key_findings": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "legal_implications": {"type": "array", "items": {"type": "string"}},
    "recommended_actions": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["narrative", "key_findings", "legal_implications", "recommended_actions"],
  "additionalProperties": false
}`),
}

var chunkSchema = llm.Schema{
	Name: "chunk_summary",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "findings": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "implications": {"type": "array", "items": {"type": "string"}},
    "actions": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["findings", "implications", "actions"],
  "additionalProperties": false
}`),
}
