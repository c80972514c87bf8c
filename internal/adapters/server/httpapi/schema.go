package httpapi

import (
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://tasktree.local/schemas/"

const taskPayloadProperties = `
	"parentId": {"type": "string", "maxLength": 64},
	"summary": {"type": "string", "minLength": 1, "maxLength": 512},
	"description": {"type": "string"},
	"dueDate": {"type": ["string", "null"], "format": "date-time"},
	"priority": {"type": "integer", "minimum": 0, "maximum": 5},
	"status": {"type": "string", "maxLength": 32}
`

var (
	createTaskSchema = mustCompileSchema("create_task.json", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["summary"],
		"properties": {`+taskPayloadProperties+`}
	}`)
	updateTaskSchema = mustCompileSchema("update_task.json", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["summary"],
		"properties": {`+taskPayloadProperties+`}
	}`)
	moveTaskSchema = mustCompileSchema("move_task.json", `{
		"type": "object",
		"additionalProperties": false,
		"required": ["index"],
		"properties": {
			"index": {"type": "integer", "minimum": 0}
		}
	}`)
	rebalanceGroupSchema = mustCompileSchema("rebalance_group.json", `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"parentId": {"type": "string", "maxLength": 64}
		}
	}`)
)

// mustCompileSchema compiles one embedded request schema with format assertions enabled.
func mustCompileSchema(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	url := schemaBaseURL + name
	if err := compiler.AddResource(url, strings.NewReader(source)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// schemaViolation returns the first leaf cause of a schema failure as "location: message".
func schemaViolation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return location + ": " + ve.Message
}
