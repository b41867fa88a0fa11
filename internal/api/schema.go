package api

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const envelopeSchemaURL = "https://labtrack.invalid/schema/envelope.json"

// envelopeSchema describes the POST body. Each action requires its own
// payload field.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action"],
  "properties": {
    "token":      {"type": "string"},
    "action":     {"type": "string", "minLength": 1},
    "item":       {"type": "object"},
    "delivery":   {"type": "object"},
    "checkout":   {"type": "object"},
    "order":      {"type": "object"},
    "itemId":     {"$ref": "#/$defs/id"},
    "checkoutId": {"$ref": "#/$defs/id"},
    "orderId":    {"$ref": "#/$defs/id"},
    "status":     {"type": "string"},
    "key":        {"type": "string", "minLength": 1}
  },
  "allOf": [
    {"if": {"properties": {"action": {"const": "addItem"}}},           "then": {"required": ["item"]}},
    {"if": {"properties": {"action": {"const": "updateItem"}}},        "then": {"required": ["item"], "properties": {"item": {"required": ["id"]}}}},
    {"if": {"properties": {"action": {"const": "deleteItem"}}},        "then": {"required": ["itemId"]}},
    {"if": {"properties": {"action": {"const": "addDelivery"}}},       "then": {"required": ["delivery"]}},
    {"if": {"properties": {"action": {"const": "addCheckout"}}},       "then": {"required": ["checkout"]}},
    {"if": {"properties": {"action": {"const": "returnItem"}}},        "then": {"required": ["checkoutId"]}},
    {"if": {"properties": {"action": {"const": "addOrder"}}},          "then": {"required": ["order"]}},
    {"if": {"properties": {"action": {"const": "updateOrderStatus"}}}, "then": {"required": ["orderId", "status"]}},
    {"if": {"properties": {"action": {"const": "deleteOrder"}}},       "then": {"required": ["orderId"]}},
    {"if": {"properties": {"action": {"const": "saveSettings"}}},      "then": {"required": ["key", "value"]}}
  ],
  "$defs": {
    "id": {"type": ["string", "number"]}
  }
}`

func compileEnvelopeSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing envelope schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding envelope schema: %w", err)
	}
	sch, err := c.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling envelope schema: %w", err)
	}
	return sch, nil
}

// validateEnvelope checks body against the schema and returns a short
// reason on failure.
func validateEnvelope(sch *jsonschema.Schema, body []byte) (string, bool) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return "request body is not valid JSON", false
	}
	if err := sch.Validate(inst); err != nil {
		return "invalid request: " + summarize(err.Error()), false
	}
	return "", true
}

// summarize flattens a multi-line validation error into its causes. The
// first line only names the schema.
func summarize(msg string) string {
	lines := strings.Split(msg, "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	causes := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimPrefix(strings.TrimSpace(l), "- ")
		if l != "" {
			causes = append(causes, l)
		}
	}
	return strings.Join(causes, "; ")
}
