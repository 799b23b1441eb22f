package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"codequest/internal/cli/command"
	httpclient "codequest/internal/cli/http"
	"codequest/internal/cli/state"
	pkgerrors "codequest/pkg/errors"

	"github.com/google/shlex"
)

// Options configures a Session.
type Options struct {
	Client     *httpclient.Client
	Commands   map[string]command.Command
	TokenState *state.TokenState
	StatePath  string
	PrettyJSON bool
	// Language fills lang= for submit and run when it is omitted.
	Language string
	// ResolveSource maps file= arguments to paths.
	ResolveSource func(string) string
	Output        io.Writer
}

// Session holds REPL state.
type Session struct {
	client        *httpclient.Client
	commands      map[string]command.Command
	tokenState    *state.TokenState
	statePath     string
	prettyJSON    bool
	language      string
	resolveSource func(string) string
	outputWriter  *bufio.Writer
}

func New(opts Options) *Session {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	resolve := opts.ResolveSource
	if resolve == nil {
		resolve = func(path string) string { return path }
	}
	if opts.TokenState == nil {
		opts.TokenState = &state.TokenState{}
	}
	return &Session{
		client:        opts.Client,
		commands:      opts.Commands,
		tokenState:    opts.TokenState,
		statePath:     opts.StatePath,
		prettyJSON:    opts.PrettyJSON,
		language:      opts.Language,
		resolveSource: resolve,
		outputWriter:  bufio.NewWriter(out),
	}
}

func (s *Session) Run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	for {
		_, _ = s.outputWriter.WriteString("codequest> ")
		_ = s.outputWriter.Flush()
		line, err := reader.ReadString('\n')
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.handleSystemCommand(line) {
			continue
		}

		if err := s.Exec(ctx, reader, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		os.Exit(0)
	case "help":
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|token|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		if len(parts) < 2 {
			s.printLine("usage: set token <access_token>")
			return
		}
		s.tokenState.AccessToken = parts[1]
		s.tokenState.BaseURL = s.client.BaseURL()
		s.tokenState.ExpiresAt = time.Time{}
		if err := state.Save(s.statePath, *s.tokenState); err != nil {
			s.printLine("save token failed: %v", err)
			return
		}
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "token":
		if s.tokenState.AccessToken == "" {
			s.printLine("token: <empty>")
			return
		}
		token := s.tokenState.AccessToken
		if len(token) > 12 {
			token = token[:6] + "..." + token[len(token)-4:]
		}
		if s.tokenState.Expired(time.Now()) {
			s.printLine("token: %s (expired, log in again)", token)
			return
		}
		if s.tokenState.TokenFor(s.client.BaseURL(), time.Now()) == "" {
			s.printLine("token: %s (issued by %s, not sent to %s)", token, s.tokenState.BaseURL, s.client.BaseURL())
			return
		}
		s.printLine("token: %s for %s", token, s.tokenState.Who())
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("defaultLanguage: %s", s.language)
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

// Exec runs one "<service> <action> key=value ..." line. Missing required
// fields are read from reader.
func (s *Session) Exec(ctx context.Context, reader *bufio.Reader, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	service := tokens[0]
	action := tokens[1]
	key := fmt.Sprintf("%s %s", service, action)
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", service, action)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}

	s.applyParamShortcuts(&cmd, params)
	if err := s.promptMissing(reader, &cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.updateTokenFromResponse(cmd, resp.Body)
	return nil
}

func (s *Session) applyParamShortcuts(cmd *command.Command, params command.Params) {
	params.Canonicalize(cmd.Fields)
	switch cmd.Service {
	case "submit":
		if params.Get("language") == "" && s.language != "" && cmd.HasField("language") {
			params.Set("language", s.language)
		}
		if file := params.Get("source_file"); file != "" {
			params.Set("source_file", s.resolveSource(file))
			if params.Get("code") == "" {
				params.Set("code", "_file_")
			}
		}
	case "problem":
		if file := params.Get("problem_file"); file != "" {
			params.Set("problem_file", s.resolveSource(file))
			if params.Get("problem_json") == "" {
				params.Set("problem_json", "_file_")
			}
		}
	}
}

func (s *Session) promptMissing(reader *bufio.Reader, cmd *command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Has(field.Name) && params.Get(field.Name) != "" && params.Get(field.Name) != "_file_" {
			continue
		}
		if params.Get(field.Name) == "_file_" {
			continue
		}
		value, err := s.promptValue(reader, field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(reader *bufio.Reader, prompt string) (string, error) {
	s.printLine("%s:", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResponse(resp httpclient.Response) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if summary := httpclient.Summary(resp); summary != "" {
		s.printLine("%s", summary)
	}
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) updateTokenFromResponse(cmd command.Command, body []byte) {
	if cmd.Service != "user" {
		return
	}
	type authUser struct {
		ID      string `json:"_id"`
		EmailID string `json:"emailId"`
		Role    string `json:"role"`
	}
	type authData struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		User      authUser  `json:"user"`
	}
	type respEnvelope struct {
		Code int      `json:"code"`
		Data authData `json:"data"`
	}
	var resp respEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	if resp.Code != int(pkgerrors.Success) {
		return
	}
	switch cmd.Action {
	case "login", "register":
		if resp.Data.Token != "" {
			*s.tokenState = state.TokenState{
				AccessToken: resp.Data.Token,
				ExpiresAt:   resp.Data.ExpiresAt,
				BaseURL:     s.client.BaseURL(),
				UserID:      resp.Data.User.ID,
				Email:       resp.Data.User.EmailID,
				Role:        resp.Data.User.Role,
			}
			if err := state.Save(s.statePath, *s.tokenState); err != nil {
				s.printLine("save token failed: %v", err)
			}
		}
	case "logout", "delete":
		*s.tokenState = state.TokenState{}
		_ = state.Clear(s.statePath)
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set base|timeout|token | show token|config")
	s.printLine("examples:")
	s.printLine("  user login email=ada@example.com password='Str0ng!pass'")
	s.printLine("  problem create file=./two-sum.json")
	s.printLine("  submit run problem=<id> lang=c++ file=./main.cpp")
	s.printLine("  submit submit problem=<id> lang=c++ file=./main.cpp")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
