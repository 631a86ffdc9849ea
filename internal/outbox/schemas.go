package outbox

const decisionRecordedSchema = `{
  "type": "object",
  "title": "DecisionRecorded",
  "properties": {
    "decision_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date-time"},
    "action": {"type": "string"},
    "phase": {"type": "string"},
    "integrity_status": {"type": "string"},
    "reasoning": {"type": "string"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["decision_id", "tenant_id", "user_id", "date", "action", "phase", "integrity_status", "reasoning", "created_at"],
  "additionalProperties": false
}`

const decisionSupersededSchema = `{
  "type": "object",
  "title": "DecisionSuperseded",
  "properties": {
    "decision_id": {"type": "string"},
    "superseded_by_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date-time"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["decision_id", "superseded_by_id", "tenant_id", "user_id", "date", "occurred_at"],
  "additionalProperties": false
}`

const integrityRejectedSchema = `{
  "type": "object",
  "title": "IntegrityRejected",
  "properties": {
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "date": {"type": "string", "format": "date-time"},
    "reason": {"type": "string"},
    "flagged_ratio": {"type": "number"},
    "sample_count": {"type": "integer"},
    "flags": {"type": "array", "items": {"type": "string"}},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "user_id", "date", "reason", "flagged_ratio", "sample_count", "occurred_at"],
  "additionalProperties": false
}`

const profileUpdatedSchema = `{
  "type": "object",
  "title": "ProfileUpdated",
  "properties": {
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "phenotype_changed": {"type": "boolean"},
    "updated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "user_id", "phenotype_changed", "updated_at"],
  "additionalProperties": false
}`
