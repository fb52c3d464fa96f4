package report

// LedgerSchema is the JSON Schema (Draft 2020-12) for the ledger
// export written by WriteLedgerJSON.
const LedgerSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/cmcc2001/quexian/ledger-export.schema.json",
  "title": "Quexian Ledger Export",
  "description": "Output schema for quexian ledger exports in JSON",
  "type": "object",
  "required": ["version", "table", "method", "defect_type", "formula", "columns", "rows"],
  "properties": {
    "version": {
      "type": "string",
      "description": "Export format version (semver)"
    },
    "table": {
      "type": "string",
      "pattern": "^[^/]+/[^/]+$",
      "description": "Ledger identity: method/defect type"
    },
    "method": {
      "type": "string",
      "description": "Test method ID (GS, SS, CP, 1/f)"
    },
    "defect_type": {
      "type": "string",
      "description": "Defect type ID (not, nit, tau, sep)"
    },
    "formula": {
      "type": "string",
      "description": "Plain-text formula"
    },
    "columns": {
      "type": "array",
      "minItems": 1,
      "items": { "type": "string" }
    },
    "rows": {
      "type": "array",
      "items": { "$ref": "#/$defs/Row" }
    },
    "trends": {
      "type": "array",
      "items": { "$ref": "#/$defs/Trend" }
    }
  },
  "$defs": {
    "Row": {
      "type": "object",
      "required": ["dose", "values"],
      "properties": {
        "dose": {
          "type": "string",
          "description": "Free-text dose label (krad)"
        },
        "values": {
          "type": "array",
          "minItems": 1,
          "items": { "type": "number" }
        }
      }
    },
    "Trend": {
      "type": "object",
      "required": ["column", "slope", "intercept", "r_squared"],
      "properties": {
        "column": { "type": "string" },
        "slope": { "type": "number" },
        "intercept": { "type": "number" },
        "r_squared": { "type": "number" }
      }
    }
  }
}`
