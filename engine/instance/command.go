// Package instance turns a resolved instance config into the concrete launch
// invocation for the game-server process. Nothing here spawns processes; the
// agent runtime consumes the result.
package instance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/gamewarden/gamewarden/engine/config"
)

// Command is one ready-to-exec invocation: argv split and expanded, working
// directory resolved, config-derived environment additions included.
type Command struct {
	Path string   `json:"path"`
	Args []string `json:"args"`
	Dir  string   `json:"dir,omitempty"`
	Env  []string `json:"env,omitempty"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// BuildLaunchCommand assembles the game-server invocation from the
// "game.command" field of an instance config. Arguments are split with shell
// quoting rules first, then placeholders like {{instance.port}} are expanded
// per argument so values containing spaces stay one argument.
func BuildLaunchCommand(cfg *config.Config) (*Command, error) {
	if cfg.Kind() != config.KindInstance {
		return nil, fmt.Errorf("launch commands require an instance config, got %s", cfg.Kind())
	}
	raw, err := cfg.Get("game.command")
	if err != nil {
		return nil, err
	}
	command, _ := raw.(string)
	cmd, err := build(cfg, command)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.Get("game.workingDir")
	if err != nil {
		return nil, err
	}
	if s, ok := dir.(string); ok {
		cmd.Dir = s
	}
	env, err := instanceEnv(cfg)
	if err != nil {
		return nil, err
	}
	cmd.Env = env
	return cmd, nil
}

// BuildPluginCommand assembles a plugin's instance entrypoint invocation,
// expanding placeholders from the same instance config.
func BuildPluginCommand(cfg *config.Config, entrypoint string) (*Command, error) {
	if cfg.Kind() != config.KindInstance {
		return nil, fmt.Errorf("plugin commands require an instance config, got %s", cfg.Kind())
	}
	return build(cfg, entrypoint)
}

func build(cfg *config.Config, command string) (*Command, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}
	// Shell lexer so quoted arguments survive the split.
	parts, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("command cannot be empty after parsing")
	}
	expanded := make([]string, len(parts))
	for i, part := range parts {
		value, err := expandArg(cfg, part)
		if err != nil {
			return nil, err
		}
		expanded[i] = value
	}
	if strings.HasPrefix(expanded[0], "-") {
		return nil, fmt.Errorf("command cannot start with a flag: %s", expanded[0])
	}
	return &Command{Path: expanded[0], Args: expanded[1:]}, nil
}

// expandArg replaces every {{group.field}} placeholder with the current
// config value. An unknown placeholder surfaces as an unknown-field error.
func expandArg(cfg *config.Config, arg string) (string, error) {
	var expandErr error
	result := placeholderPattern.ReplaceAllStringFunc(arg, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, err := cfg.Get(name)
		if err != nil {
			if expandErr == nil {
				expandErr = fmt.Errorf("placeholder %q: %w", name, err)
			}
			return match
		}
		return formatValue(value)
	})
	if expandErr != nil {
		return "", expandErr
	}
	return result, nil
}

// formatValue renders a config value as a command-line token.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// instanceEnv derives the environment additions handed to the process.
func instanceEnv(cfg *config.Config) ([]string, error) {
	var env []string
	for _, fullName := range []string{"instance.uuid", "instance.name", "instance.port"} {
		value, err := cfg.Get(fullName)
		if err != nil {
			return nil, err
		}
		env = append(env, envKey(fullName)+"="+formatValue(value))
	}
	return env, nil
}

func envKey(fullName string) string {
	return "GAMEWARDEN_" + strings.ToUpper(strings.ReplaceAll(fullName, ".", "_"))
}
