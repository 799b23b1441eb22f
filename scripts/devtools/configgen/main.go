// Command configgen renders configs/server.yaml and configs/cli.yaml from one
// profile so the server and the CLI agree on address, secrets and the judge.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	targetServer = "server"
	targetCLI    = "cli"
)

// Profile describes one environment.
type Profile struct {
	OutputDir string                   `yaml:"outputDir"`
	Shared    SharedProfile            `yaml:"shared"`
	Targets   map[string]TargetProfile `yaml:"targets"`
}

// SharedProfile holds values written into more than one target.
type SharedProfile struct {
	ServerAddr   string `yaml:"serverAddr"`
	JWTSecret    string `yaml:"jwtSecret"`
	JWTIssuer    string `yaml:"jwtIssuer"`
	JudgeBaseURL string `yaml:"judgeBaseURL"`
	StoreDriver  string `yaml:"storeDriver"`
}

// TargetProfile is a base file plus overrides.
type TargetProfile struct {
	Base      string                 `yaml:"base"`
	Output    string                 `yaml:"output"`
	Overrides map[string]interface{} `yaml:"overrides"`
}

func main() {
	profilePath := flag.String("profile", "configs/dev-profile.yaml", "Path to config profile")
	outputDir := flag.String("output-dir", "", "Override output directory")
	flag.Parse()

	if err := run(*profilePath, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(profilePath, outputDir string) error {
	profilePathAbs, err := filepath.Abs(profilePath)
	if err != nil {
		return fmt.Errorf("resolve profile path failed: %w", err)
	}
	profile, err := loadProfile(profilePathAbs)
	if err != nil {
		return fmt.Errorf("load profile failed: %w", err)
	}
	if outputDir != "" {
		profile.OutputDir = outputDir
	}
	if profile.OutputDir == "" {
		return errors.New("output directory is required")
	}
	profileDir := filepath.Dir(profilePathAbs)
	if !filepath.IsAbs(profile.OutputDir) {
		profile.OutputDir = filepath.Join(profileDir, profile.OutputDir)
	}

	names := make([]string, 0, len(profile.Targets))
	for name := range profile.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := profile.Targets[name]
		if target.Base == "" {
			return fmt.Errorf("target %q missing base config", name)
		}
		if !filepath.IsAbs(target.Base) {
			target.Base = filepath.Join(profileDir, target.Base)
		}

		config, err := render(profile, name, target)
		if err != nil {
			return fmt.Errorf("render %q failed: %w", name, err)
		}
		outputPath, err := resolveOutputPath(profile.OutputDir, target)
		if err != nil {
			return fmt.Errorf("resolve output path for %q failed: %w", name, err)
		}
		if err := writeYAML(outputPath, config); err != nil {
			return fmt.Errorf("write config for %q failed: %w", name, err)
		}
	}
	return nil
}

func render(profile *Profile, name string, target TargetProfile) (map[string]interface{}, error) {
	base, err := loadYAML(target.Base)
	if err != nil {
		return nil, err
	}
	config, ok := normalizeValue(base).(map[string]interface{})
	if !ok {
		return nil, errors.New("base config is not a map")
	}
	if len(target.Overrides) > 0 {
		override, _ := normalizeValue(target.Overrides).(map[string]interface{})
		config = mergeMap(config, override)
	}
	return applyShared(profile.Shared, name, config)
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile failed: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile failed: %w", err)
	}
	if len(profile.Targets) == 0 {
		return nil, errors.New("profile has no targets")
	}
	return &profile, nil
}

func loadYAML(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml failed: %w", err)
	}
	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse yaml failed: %w", err)
	}
	return value, nil
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	// Rendered server configs carry secrets.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write yaml failed: %w", err)
	}
	return nil
}

func resolveOutputPath(outputDir string, target TargetProfile) (string, error) {
	output := target.Output
	if output == "" {
		output = filepath.Base(target.Base)
	}
	if output == "" || output == "." {
		return "", errors.New("output path is empty")
	}
	if filepath.IsAbs(output) {
		return output, nil
	}
	return filepath.Join(outputDir, output), nil
}

func normalizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = normalizeValue(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprintf("%v", k)
			}
			out[key] = normalizeValue(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, normalizeValue(item))
		}
		return out
	default:
		return value
	}
}

// mergeMap merges override into base recursively; override wins on conflicts.
func mergeMap(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for key, overrideValue := range override {
		baseChild, baseIsMap := merged[key].(map[string]interface{})
		overrideChild, overrideIsMap := overrideValue.(map[string]interface{})
		if baseIsMap && overrideIsMap {
			merged[key] = mergeMap(baseChild, overrideChild)
			continue
		}
		merged[key] = overrideValue
	}
	return merged
}

func applyShared(shared SharedProfile, name string, config map[string]interface{}) (map[string]interface{}, error) {
	switch name {
	case targetServer:
		if shared.ServerAddr != "" {
			section(config, "server")["addr"] = shared.ServerAddr
		}
		if shared.JWTSecret != "" {
			section(config, "auth")["jwtSecret"] = shared.JWTSecret
		}
		if shared.JWTIssuer != "" {
			section(config, "auth")["jwtIssuer"] = shared.JWTIssuer
		}
		if shared.JudgeBaseURL != "" {
			section(config, "judge")["baseURL"] = shared.JudgeBaseURL
		}
		if shared.StoreDriver != "" {
			section(config, "store")["driver"] = shared.StoreDriver
		}
	case targetCLI:
		if shared.ServerAddr != "" {
			baseURL, err := clientURL(shared.ServerAddr)
			if err != nil {
				return nil, err
			}
			config["baseURL"] = baseURL
		}
	}
	return config, nil
}

func section(config map[string]interface{}, key string) map[string]interface{} {
	child, ok := config[key].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
		config[key] = child
	}
	return child
}

// clientURL turns a listen address into a URL a local client can dial.
func clientURL(listenAddr string) (string, error) {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server addr %q: %w", listenAddr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
