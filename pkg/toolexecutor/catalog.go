package toolexecutor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Tool names exposed to the model
const (
	ToolCreateTask  = "create_task"
	ToolGetBoards   = "get_boards"
	ToolGetLists    = "get_lists"
	ToolGetCards    = "get_cards"
	ToolMoveCard    = "move_card"
	ToolArchiveCard = "archive_card"
	ToolSetDueDate  = "set_due_date"
	ToolAppendNote  = "append_note"
	ToolSearchNotes = "search_notes"
	ToolReadDaily   = "read_daily"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDefinition defines a tool's metadata
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	// Destructive tools are deferred until the user confirms them
	Destructive bool `json:"destructive,omitempty"`
}

// Catalog is the immutable set of tools the model may request
type Catalog struct {
	tools        []ToolDefinition
	index        map[string]int
	schemas      map[string]*gojsonschema.Schema
	inputSchemas map[string]map[string]interface{}
}

// NewCatalog validates the definitions and compiles their schemas once
func NewCatalog(defs ...ToolDefinition) (*Catalog, error) {
	c := &Catalog{
		tools:        make([]ToolDefinition, 0, len(defs)),
		index:        make(map[string]int, len(defs)),
		schemas:      make(map[string]*gojsonschema.Schema, len(defs)),
		inputSchemas: make(map[string]map[string]interface{}, len(defs)),
	}

	for _, def := range defs {
		if err := validateToolDefinition(def); err != nil {
			return nil, fmt.Errorf("invalid tool definition: %w", err)
		}
		if _, exists := c.index[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", def.Name)
		}

		schemaMap := generateJSONSchema(def)
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for %s: %w", def.Name, err)
		}

		c.index[def.Name] = len(c.tools)
		c.tools = append(c.tools, def)
		c.schemas[def.Name] = schema
		c.inputSchemas[def.Name] = schemaMap
	}

	return c, nil
}

// Tools returns the definitions in catalog order
func (c *Catalog) Tools() []ToolDefinition {
	out := make([]ToolDefinition, len(c.tools))
	copy(out, c.tools)
	return out
}

// Lookup returns a tool definition by name
func (c *Catalog) Lookup(name string) (ToolDefinition, bool) {
	i, ok := c.index[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return c.tools[i], true
}

// InputSchema returns the JSON Schema sent to the completion endpoint
func (c *Catalog) InputSchema(name string) map[string]interface{} {
	return c.inputSchemas[name]
}

// Validate checks input against the tool's schema
func (c *Catalog) Validate(name string, input map[string]interface{}) error {
	schema, ok := c.schemas[name]
	if !ok {
		return fmt.Errorf("tool not found: %s", name)
	}
	if input == nil {
		input = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}

// generateJSONSchema builds the object schema for a tool. Required strings
// must be non-empty and unknown properties are rejected.
func generateJSONSchema(def ToolDefinition) map[string]interface{} {
	properties := make(map[string]interface{}, len(def.Parameters))
	required := []string{}

	for _, param := range def.Parameters {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Required {
			required = append(required, param.Name)
			if param.Type == "string" {
				paramSchema["minLength"] = 1
			}
		}
		properties[param.Name] = paramSchema
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}
	return schemaMap
}

// DefaultTools returns the task tracker and notes vault tools
func DefaultTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolCreateTask,
			Description: "Create a new task as a Trello card. Use when the user mentions something actionable that needs tracking. Clean up informal input into a clear task title. Goes to the default inbox list unless a specific list_id is provided.",
			Parameters: []ToolParameter{
				{Name: "name", Type: "string", Description: "Short, clear task title", Required: true},
				{Name: "desc", Type: "string", Description: "Optional longer description"},
				{Name: "list_id", Type: "string", Description: "Target list ID; defaults to the inbox list"},
				{Name: "due", Type: "string", Description: "Due date as YYYY-MM-DD or an RFC 3339 timestamp"},
			},
		},
		{
			Name:        ToolGetBoards,
			Description: "List all Trello boards the user has access to. Use when the user asks about their boards or you need to find a board ID.",
		},
		{
			Name:        ToolGetLists,
			Description: "List all lists on a Trello board. Use when the user asks what lists exist on a board, or when you need a list ID to move or create cards.",
			Parameters: []ToolParameter{
				{Name: "board_id", Type: "string", Description: "Board ID", Required: true},
			},
		},
		{
			Name:        ToolGetCards,
			Description: "List all cards on a Trello list. Use when the user asks what tasks are on a list, wants to review their inbox, or you need a card ID for another operation.",
			Parameters: []ToolParameter{
				{Name: "list_id", Type: "string", Description: "List ID", Required: true},
			},
		},
		{
			Name:        ToolMoveCard,
			Description: "Move a Trello card to a different list. Use when the user wants to organize, sort, or reclassify a task. Requires the card ID and the target list ID.",
			Parameters: []ToolParameter{
				{Name: "card_id", Type: "string", Description: "Card ID", Required: true},
				{Name: "target_list_id", Type: "string", Description: "Destination list ID", Required: true},
			},
		},
		{
			Name:        ToolArchiveCard,
			Description: "Archive a Trello card. Use when the user wants to remove or complete a task. This is destructive: the user is asked to confirm with yes or no before the card is hidden from the board.",
			Parameters: []ToolParameter{
				{Name: "card_id", Type: "string", Description: "Card ID", Required: true},
				{Name: "name", Type: "string", Description: "Card name, used in the confirmation prompt"},
			},
			Destructive: true,
		},
		{
			Name:        ToolSetDueDate,
			Description: "Set or update the due date on a Trello card. Use when the user mentions a deadline for an existing task.",
			Parameters: []ToolParameter{
				{Name: "card_id", Type: "string", Description: "Card ID", Required: true},
				{Name: "due_date", Type: "string", Description: "Due date as YYYY-MM-DD or an RFC 3339 timestamp", Required: true},
			},
		},
		{
			Name:        ToolAppendNote,
			Description: "Append a timestamped entry to today's daily note in Obsidian. Use when the user shares something informational that doesn't need to be a task: observations, reminders, context, meeting notes.",
			Parameters: []ToolParameter{
				{Name: "note_text", Type: "string", Description: "Cleaned-up note text", Required: true},
			},
		},
		{
			Name:        ToolSearchNotes,
			Description: "Search the Obsidian vault for a keyword or phrase. Use when the user asks about past notes or wants to find something they previously captured.",
			Parameters: []ToolParameter{
				{Name: "query_text", Type: "string", Description: "Keyword or phrase", Required: true},
			},
		},
		{
			Name:        ToolReadDaily,
			Description: "Read today's daily note from Obsidian. Use when the user asks what they've captured today or wants to review their daily note.",
		},
	}
}

// DefaultCatalog returns the catalog built from DefaultTools
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTools()...)
	if err != nil {
		panic(fmt.Sprintf("default tool catalog is invalid: %v", err))
	}
	return c
}
