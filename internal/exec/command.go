package exec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/tapcraft-io/shift/pkg/types"
)

// RedactedToken replaces the session token whenever a command is echoed
const RedactedToken = "***"

// Options maps flag names to values. A scalar becomes a single flag, a slice
// becomes a repeated flag, a map becomes repeated key=value flags and a nil
// value is omitted.
type Options map[string]any

// Command is a single oc invocation expressed without global flags
type Command struct {
	// Verb may hold several words, e.g. "policy add-role-to-user"
	Verb    string
	Args    []string
	Options Options
}

// NewCommand creates a command from a verb and positional arguments
func NewCommand(verb string, args ...string) Command {
	return Command{Verb: verb, Args: args}
}

// With returns a copy of the command carrying additional options. Options
// already present on the command win over the given ones.
func (c Command) With(opts Options) Command {
	merged := make(Options, len(c.Options)+len(opts))
	for k, v := range opts {
		merged[k] = v
	}
	for k, v := range c.Options {
		merged[k] = v
	}
	c.Options = merged
	return c
}

// Argv builds the argument vector: verb words, positionals, then flags
func (c Command) Argv() []string {
	argv := strings.Fields(c.Verb)
	argv = append(argv, c.Args...)
	return append(argv, c.Options.Unfold()...)
}

// String renders the command the way it would be typed in a shell
func (c Command) String() string {
	return shellquote.Join(c.Argv()...)
}

// Unfold converts options into flags, sorted by name for stable output
func (o Options) Unfold() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flags := make([]string, 0, len(o))
	for _, k := range keys {
		flags = append(flags, unfoldValue(k, o[k])...)
	}
	return flags
}

func unfoldValue(name string, value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		flags := make([]string, 0, len(v))
		for _, item := range v {
			flags = append(flags, fmt.Sprintf("--%s=%s", name, item))
		}
		return flags
	case []any:
		flags := make([]string, 0, len(v))
		for _, item := range v {
			flags = append(flags, fmt.Sprintf("--%s=%v", name, item))
		}
		return flags
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		flags := make([]string, 0, len(v))
		for _, k := range keys {
			flags = append(flags, fmt.Sprintf("--%s=%s=%s", name, k, v[k]))
		}
		return flags
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		flags := make([]string, 0, len(v))
		for _, k := range keys {
			flags = append(flags, fmt.Sprintf("--%s=%s=%v", name, k, v[k]))
		}
		return flags
	default:
		return []string{fmt.Sprintf("--%s=%v", name, v)}
	}
}

// Redact replaces every occurrence of secret inside args
func Redact(args []string, secret string) []string {
	redacted := make([]string, len(args))
	for i, arg := range args {
		if secret != "" {
			arg = strings.ReplaceAll(arg, secret, RedactedToken)
		}
		redacted[i] = arg
	}
	return redacted
}

// Parser parses oc command lines
type Parser struct{}

// NewParser creates a new command parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses an oc command string. Quoted arguments are honoured.
func (p *Parser) Parse(command string) *types.ParsedCommand {
	cmd := &types.ParsedCommand{
		Raw:       command,
		Flags:     make(map[string]string),
		BoolFlags: make(map[string]bool),
		IsValid:   true,
		Errors:    make([]string, 0),
	}

	command = strings.TrimSpace(command)
	command = strings.TrimPrefix(command, "oc ")
	command = strings.TrimSpace(command)

	if command == "" {
		cmd.IsValid = false
		cmd.Errors = append(cmd.Errors, "empty command")
		return cmd
	}

	tokens, err := shellquote.Split(command)
	if err != nil {
		cmd.IsValid = false
		cmd.Errors = append(cmd.Errors, err.Error())
		return cmd
	}
	cmd.Args = tokens

	cmd.Verb = tokens[0]
	position := 1

	for position < len(tokens) {
		token := tokens[position]

		switch {
		case strings.HasPrefix(token, "--"):
			flagName := strings.TrimPrefix(token, "--")

			// --name=value form
			if name, value, ok := strings.Cut(flagName, "="); ok {
				p.setFlag(cmd, name, value)
				position++
				continue
			}

			if isBooleanFlag(flagName) {
				cmd.BoolFlags[flagName] = true
				position++
				continue
			}

			if position+1 < len(tokens) && !strings.HasPrefix(tokens[position+1], "-") {
				p.setFlag(cmd, flagName, tokens[position+1])
				position += 2
				continue
			}

			cmd.BoolFlags[flagName] = true
			position++

		case strings.HasPrefix(token, "-") && len(token) == 2:
			flagName := expandShortFlag(strings.TrimPrefix(token, "-"))

			if isBooleanFlag(flagName) {
				cmd.BoolFlags[flagName] = true
				position++
				continue
			}

			if position+1 < len(tokens) && !strings.HasPrefix(tokens[position+1], "-") {
				p.setFlag(cmd, flagName, tokens[position+1])
				position += 2
				continue
			}

			cmd.IsValid = false
			cmd.Errors = append(cmd.Errors, fmt.Sprintf("flag -%s needs a value", flagName))
			position++

		default:
			if cmd.Resource == "" {
				resource, name, _ := strings.Cut(token, "/")
				cmd.Resource = normalizeResourceType(resource)
				cmd.ResourceName = name
			} else if cmd.ResourceName == "" {
				cmd.ResourceName = token
			}
			position++
		}
	}

	return cmd
}

func (p *Parser) setFlag(cmd *types.ParsedCommand, name, value string) {
	cmd.Flags[name] = value
	if name == "namespace" {
		cmd.Namespace = value
	}
}

// isBooleanFlag checks if a flag is a boolean flag
func isBooleanFlag(flag string) bool {
	switch flag {
	case "all-namespaces", "watch", "force", "follow", "help", "wait", "insecure-skip-tls-verify", "overwrite":
		return true
	}
	return false
}

// expandShortFlag expands a short flag to its long form
func expandShortFlag(short string) string {
	expansions := map[string]string{
		"n": "namespace",
		"f": "filename",
		"o": "output",
		"l": "selector",
		"c": "containers",
		"p": "patch",
		"A": "all-namespaces",
		"w": "watch",
		"h": "help",
	}

	if long, ok := expansions[short]; ok {
		return long
	}

	return short
}

// normalizeResourceType normalizes a resource type alias to its full form
func normalizeResourceType(resource string) string {
	aliases := map[string]string{
		"po":                    "pods",
		"pod":                   "pods",
		"svc":                   "services",
		"service":               "services",
		"dc":                    "deploymentconfigs",
		"deploymentconfig":      "deploymentconfigs",
		"rc":                    "replicationcontrollers",
		"replicationcontroller": "replicationcontrollers",
		"cm":                    "configmaps",
		"configmap":             "configmaps",
		"secret":                "secrets",
		"route":                 "routes",
		"template":              "templates",
		"rolebinding":           "rolebindings",
		"project":               "projects",
		"ns":                    "namespaces",
	}

	if full, ok := aliases[resource]; ok {
		return full
	}

	return resource
}

// IsDestructive checks if a command is destructive (requires confirmation)
func IsDestructive(cmd *types.ParsedCommand) bool {
	if cmd == nil || !cmd.IsValid {
		return false
	}

	switch cmd.Verb {
	case "delete", "scale", "rollout", "patch", "process", "new-app":
		return true
	}

	return cmd.BoolFlags["force"]
}
