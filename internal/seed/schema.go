package seed

// fileSchema mirrors the quiz authoring rules.
const fileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "quizzes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description", "questions"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "entryFee": {"type": "number", "minimum": 0},
          "status": {"enum": ["PENDING", "APPROVED", "REJECTED"]},
          "createdBy": {"type": "string"},
          "questions": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["questionText", "options", "correctOptionIndex"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "questionText": {"type": "string", "minLength": 1},
                "options": {
                  "type": "array",
                  "minItems": 2,
                  "items": {"type": "string", "minLength": 1}
                },
                "correctOptionIndex": {"type": "integer", "minimum": 0},
                "timeLimit": {"type": "integer", "minimum": 10, "maximum": 30}
              }
            }
          }
        }
      }
    },
    "wallets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["userId", "amount"],
        "properties": {
          "userId": {"type": "string", "minLength": 1},
          "amount": {"type": "number", "exclusiveMinimum": 0},
          "description": {"type": "string"}
        }
      }
    }
  }
}`
