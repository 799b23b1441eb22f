package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	account := []Field{
		{Name: "firstName", Aliases: []string{"first_name", "name"}, Prompt: "first name", Type: FieldString, Required: true},
		{Name: "lastName", Aliases: []string{"last_name"}, Prompt: "last name", Type: FieldString},
		{Name: "emailId", Aliases: []string{"email"}, Prompt: "email", Type: FieldString, Required: true},
		{Name: "age", Prompt: "age", Type: FieldInt},
		{Name: "password", Prompt: "password", Type: FieldString, Required: true},
	}
	code := []Field{
		{Name: "problem_id", Aliases: []string{"problem"}, Prompt: "problem_id", Type: FieldString, Required: true},
		{Name: "language", Aliases: []string{"lang"}, Prompt: "language (c++|java|javascript)", Type: FieldString, Required: true},
		{Name: "code", Prompt: "code", Type: FieldString, Required: true},
		{Name: "source_file", Aliases: []string{"file"}, Prompt: "source_file", Type: FieldFile},
	}
	problemBody := []Field{
		{Name: "problem_json", Aliases: []string{"json"}, Prompt: "problem_json (JSON)", Type: FieldJSON, Required: true},
		{Name: "problem_file", Aliases: []string{"file"}, Prompt: "problem_file", Type: FieldFile},
	}
	problemID := []Field{
		{Name: "id", Aliases: []string{"problem_id"}, Prompt: "problem_id", Type: FieldString, Required: true},
	}

	commands := []Command{
		{Service: "user", Action: "register", Method: "POST", PathTemplate: "/user/register", Fields: account},
		{Service: "user", Action: "login", Method: "POST", PathTemplate: "/user/login", Fields: []Field{
			{Name: "emailId", Aliases: []string{"email"}, Prompt: "email", Type: FieldString, Required: true},
			{Name: "password", Prompt: "password", Type: FieldString, Required: true},
		}},
		{Service: "user", Action: "logout", Method: "POST", PathTemplate: "/user/logout", RequiresAuth: true},
		{Service: "user", Action: "profile", Method: "GET", PathTemplate: "/user/profile", RequiresAuth: true},
		{Service: "user", Action: "delete", Method: "DELETE", PathTemplate: "/user/profile", RequiresAuth: true},
		{Service: "user", Action: "solved", Method: "GET", PathTemplate: "/user/solved", RequiresAuth: true},
		{Service: "admin", Action: "register", Method: "POST", PathTemplate: "/user/admin/register", RequiresAuth: true, Fields: account},

		{Service: "problem", Action: "list", Method: "GET", PathTemplate: "/problems", RequiresAuth: true},
		{Service: "problem", Action: "get", Method: "GET", PathTemplate: "/problems/:id", RequiresAuth: true, Fields: problemID},
		{Service: "problem", Action: "full", Method: "GET", PathTemplate: "/problems/:id/full", RequiresAuth: true, Fields: problemID},
		{Service: "problem", Action: "create", Method: "POST", PathTemplate: "/problems", RequiresAuth: true, Fields: problemBody},
		{Service: "problem", Action: "validate", Method: "POST", PathTemplate: "/problems/validate", RequiresAuth: true, Fields: problemBody},
		{Service: "problem", Action: "update", Method: "PUT", PathTemplate: "/problems/:id", RequiresAuth: true,
			Fields: append(append([]Field{}, problemID...), problemBody...)},
		{Service: "problem", Action: "delete", Method: "DELETE", PathTemplate: "/problems/:id", RequiresAuth: true, Fields: problemID},
		{Service: "problem", Action: "submissions", Method: "GET", PathTemplate: "/problems/:id/submissions", RequiresAuth: true, Fields: problemID},
		{Service: "problem", Action: "source", Method: "GET", PathTemplate: "/problems/:id/submissions/:submission_id", RequiresAuth: true,
			Fields: append(append([]Field{}, problemID...),
				Field{Name: "submission_id", Aliases: []string{"submission"}, Prompt: "submission_id", Type: FieldString, Required: true})},

		{Service: "submit", Action: "submit", Method: "POST", PathTemplate: "/submissions/:problem_id/submit", RequiresAuth: true, Fields: code},
		{Service: "submit", Action: "run", Method: "POST", PathTemplate: "/submissions/:problem_id/run", RequiresAuth: true, Fields: code},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		key := fmt.Sprintf("%s %s", cmd.Service, cmd.Action)
		result[key] = cmd
	}
	return result
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	for _, key := range []string{"submission_id", "problem_id", "id"} {
		placeholder := ":" + key
		if strings.Contains(path, placeholder) {
			value := params.Get(key)
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", key)
			}
			path = strings.ReplaceAll(path, placeholder, value)
		}
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Service {
	case "user", "admin":
		switch cmd.Action {
		case "register":
			return buildAccountPayload(params)
		case "login":
			return map[string]string{
				"emailId":  params.Get("emailId"),
				"password": params.Get("password"),
			}, nil
		}
	case "problem":
		switch cmd.Action {
		case "create", "validate", "update":
			return parseJSONOrFile(params, "problem_json", "problem_file")
		}
	case "submit":
		return buildCodePayload(params)
	}
	return nil, nil
}

func buildAccountPayload(params Params) (interface{}, error) {
	payload := map[string]interface{}{
		"firstName": params.Get("firstName"),
		"emailId":   params.Get("emailId"),
		"password":  params.Get("password"),
	}
	if params.Get("lastName") != "" {
		payload["lastName"] = params.Get("lastName")
	}
	if params.Get("age") != "" {
		age, err := ParseInt(params.Get("age"))
		if err != nil {
			return nil, fmt.Errorf("invalid age: %w", err)
		}
		payload["age"] = age
	}
	return payload, nil
}

func buildCodePayload(params Params) (interface{}, error) {
	code := params.Get("code")
	if (code == "" || code == "_file_") && params.Get("source_file") != "" {
		var err error
		code, err = ReadFile(params.Get("source_file"))
		if err != nil {
			return nil, err
		}
	}
	if code == "" || code == "_file_" {
		return nil, fmt.Errorf("code is required")
	}
	return map[string]string{
		"language": params.Get("language"),
		"code":     code,
	}, nil
}

func parseJSONOrFile(params Params, key, fileKey string) (json.RawMessage, error) {
	value := params.Get(key)
	if (value == "" || value == "_file_") && params.Get(fileKey) != "" {
		data, err := ReadFile(params.Get(fileKey))
		if err != nil {
			return nil, err
		}
		value = data
	}
	if value == "" || value == "_file_" {
		return nil, fmt.Errorf("%s is required", key)
	}
	return ParseJSON(value)
}
