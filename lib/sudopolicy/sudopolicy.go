// Package sudopolicy implements the sudo-style policy-plugin state machine:
// username resolution, batch access evaluation for a command and its
// arguments, and command-info construction. It is grounded on
// original_source/src/c/modules/sudo/sgnl_sudo.c and exposes a pure Go API
// that plugins/sudo's cgo shim adapts to the sudo_plugin.h ABI.
package sudopolicy

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/gravitational/trace"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sgnllog"
)

// Version is the library version string reported by the sudo plugin's
// version command and by sgnlctl, matching sgnl_get_version() in
// original_source/src/c/lib/libsgnl.c.
const Version = "1.0.0"

// Code mirrors the sudo policy plugin's return codes (SUDO_RC_* in
// sgnl_sudo.c; not defined in sudo_plugin.h itself).
type Code int

const (
	CodeUsageError Code = -2
	CodeError      Code = -1
	CodeReject     Code = 0
	CodeAccept     Code = 1
)

// Settings are the plugin-local options load_sudo_settings resolves from
// the shared configuration document.
type Settings struct {
	Debug            bool
	AccessMsgEnabled bool
	CommandAttribute string
	BatchEvaluation  bool
}

// SettingsFromConfig extracts the sudo-specific fields of cfg.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Debug:            cfg.Logging.Debug,
		AccessMsgEnabled: cfg.Sudo.AccessMsg,
		CommandAttribute: cfg.Sudo.CommandAttribute,
		BatchEvaluation:  cfg.Sudo.BatchEvaluation,
	}
}

// CommandInfo is the command_info the plugin hands back to sudo on accept:
// the resolved executable path, the uid/gid to run as, the working
// directory, and an execution timeout. It is only ever populated on an
// accept decision; a reject or error never carries one
// (SPEC_FULL.md §8's command-info completeness/absence invariant).
type CommandInfo struct {
	Command        string
	RunAsUID       int
	RunAsGID       int
	Cwd            string
	TimeoutSeconds int
}

// Policy evaluates sudo access decisions against an authzclient.Client.
type Policy struct {
	client   *authzclient.Client
	logger   *slog.Logger
	settings Settings
}

// New builds a Policy. client must already be validated and ready to use.
func New(client *authzclient.Client, settings Settings, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = sgnllog.Get(context.Background())
	}
	return &Policy{client: client, settings: settings, logger: logger}
}

// CurrentUsername resolves the invoking user the way get_current_username
// does: first from a "user=<name>" entry in userInfo (sudo's user_info
// settings array), then SUDO_USER, then the OS's notion of the current
// user.
func CurrentUsername(userInfo []string) string {
	for _, entry := range userInfo {
		if name, ok := strings.CutPrefix(entry, "user="); ok && name != "" {
			return name
		}
	}
	if name := os.Getenv("SUDO_USER"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// ResolveCommandPath resolves command to an absolute, executable path.
// Commands that already contain a "/" are returned unchanged, matching
// resolve_command_path's assumption that the caller supplied an explicit
// path; otherwise PATH is searched.
func ResolveCommandPath(command string) (string, error) {
	if strings.Contains(command, "/") {
		return command, nil
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", trace.NotFound("command not found: %s", command)
	}
	return resolved, nil
}

// BuildCommandInfo resolves command to a CommandInfo, matching
// build_command_info: a resolved path, root:root as the default run-as
// identity, the caller's current working directory, and a five-minute
// timeout.
func BuildCommandInfo(command string) (CommandInfo, error) {
	resolved, err := ResolveCommandPath(command)
	if err != nil {
		return CommandInfo{}, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return CommandInfo{
		Command:        resolved,
		RunAsUID:       0,
		RunAsGID:       0,
		Cwd:            cwd,
		TimeoutSeconds: 300,
	}, nil
}

// buildQueries constructs the batch the way check_sudo_access_with_args
// does: a sudo-action query for the command itself, then one query per
// non-empty argument with the command name as the action.
func buildQueries(username string, argv []string) []authzclient.AccessQuery {
	queries := make([]authzclient.AccessQuery, 0, len(argv))
	queries = append(queries, authzclient.AccessQuery{
		PrincipalID: username,
		AssetID:     argv[0],
		Action:      "sudo",
	})
	for _, arg := range argv[1:] {
		if arg == "" {
			continue
		}
		queries = append(queries, authzclient.AccessQuery{
			PrincipalID: username,
			AssetID:     arg,
			Action:      argv[0],
		})
	}
	return queries
}

// CheckAccessWithArgs evaluates username's access to run argv[0] with
// argv[1:], returning the AND of every query's decision: every query must
// evaluate to allow for the overall result to be allow.
func (p *Policy) CheckAccessWithArgs(ctx context.Context, username string, argv []string) (authzclient.Decision, []authzclient.AccessResult, error) {
	if len(argv) == 0 || argv[0] == "" {
		return authzclient.DecisionDeny, nil, trace.BadParameter("no command specified")
	}

	queries := buildQueries(username, argv)

	if len(queries) == 1 {
		result, err := p.client.Evaluate(ctx, queries[0])
		if err != nil {
			return authzclient.DecisionDeny, nil, err
		}
		return result.Decision, []authzclient.AccessResult{result}, nil
	}

	if !p.settings.BatchEvaluation {
		results := make([]authzclient.AccessResult, 0, len(queries))
		overall := authzclient.DecisionAllow
		for _, q := range queries {
			result, err := p.client.Evaluate(ctx, q)
			if err != nil {
				return authzclient.DecisionDeny, nil, err
			}
			results = append(results, result)
			if result.Decision != authzclient.DecisionAllow {
				overall = authzclient.DecisionDeny
				break
			}
		}
		return overall, results, nil
	}

	results, err := p.client.BatchEvaluate(ctx, queries)
	if err != nil {
		return authzclient.DecisionDeny, nil, err
	}
	overall := authzclient.DecisionAllow
	for _, result := range results {
		if result.Decision != authzclient.DecisionAllow {
			overall = authzclient.DecisionDeny
			break
		}
	}
	return overall, results, nil
}

// Check is the Go analog of policy_check: given the already-resolved
// username, it evaluates access for the full command line and on accept
// builds the command_info sudo needs to exec the command.
func (p *Policy) Check(ctx context.Context, username string, argv []string) (Code, CommandInfo, error) {
	logCtx := sgnllog.Context{Component: "sudopolicy", Function: "Check", PrincipalID: username}

	if len(argv) == 0 || argv[0] == "" {
		logCtx.With(p.logger).Error("no command specified")
		return CodeReject, CommandInfo{}, trace.BadParameter("no command specified")
	}

	decision, _, err := p.CheckAccessWithArgs(ctx, username, argv)
	if err != nil {
		logCtx.With(p.logger).Error("access evaluation failed", "error", err)
		return CodeError, CommandInfo{}, err
	}

	if decision != authzclient.DecisionAllow {
		logCtx.With(p.logger).Warn("access denied", "command", strings.Join(argv, " "))
		return CodeReject, CommandInfo{}, nil
	}

	if p.settings.AccessMsgEnabled {
		logCtx.With(p.logger).Info("access granted", "command", argv[0])
	}

	info, err := BuildCommandInfo(argv[0])
	if err != nil {
		logCtx.With(p.logger).Error("failed to build command info", "error", err)
		return CodeError, CommandInfo{}, err
	}
	return CodeAccept, info, nil
}

// List is the Go analog of policy_list: with a specific command it reports
// whether username may execute it; with none, it returns every asset
// username may reach under the "execute" action.
func (p *Policy) List(ctx context.Context, username string, command string) (allowed bool, assets []authzclient.SearchResult, err error) {
	if command != "" {
		result, err := p.client.Evaluate(ctx, authzclient.AccessQuery{PrincipalID: username, AssetID: command, Action: "execute"})
		if err != nil {
			return false, nil, err
		}
		return result.Decision == authzclient.DecisionAllow, nil, nil
	}
	assets, err = p.client.Search(ctx, authzclient.SearchQuery{PrincipalID: username, Action: "execute"})
	return false, assets, err
}

// FormatCommandLine joins argv the way policy_check's error logging does,
// for use in diagnostic messages.
func FormatCommandLine(argv []string) string {
	return strings.Join(argv, " ")
}
