// Command sudo builds the SGNL sudo policy plugin as a C shared object
// (-buildmode=c-shared). It is a thin cgo shim over lib/sudopolicy: every
// sudo_plugin.h entry point here does argument marshalling only, and
// immediately delegates the actual decision to a sudopolicy.Policy.
package main

/*
#cgo LDFLAGS: -shared
#include <stdlib.h>
#include <string.h>
#include <sudo_plugin.h>

// SUDO_RC_* are standard sudo policy plugin return codes; sudo_plugin.h
// does not define them itself (see sgnl_sudo.c).
#define SUDO_RC_OK          1
#define SUDO_RC_ACCEPT      1
#define SUDO_RC_REJECT      0
#define SUDO_RC_ERROR      -1
#define SUDO_RC_USAGE_ERROR -2

static sudo_conv_t sgnl_sudo_conv;
static sudo_printf_t sgnl_sudo_log;
static char * const *sgnl_sudo_user_env;

static void sgnl_sudo_store_callbacks(sudo_conv_t conv, sudo_printf_t log) {
    sgnl_sudo_conv = conv;
    sgnl_sudo_log = log;
}

// sgnl_sudo_info and sgnl_sudo_error write to the terminal sudo invoked the
// plugin from (SUDO_CONV_INFO_MSG / SUDO_CONV_ERROR_MSG), the same channel
// sgnl_sudo.c's sudo_log calls use. They are cgo preamble functions, so Go
// code in this file calls them directly as C.sgnl_sudo_info / C.sgnl_sudo_error.
static void sgnl_sudo_info(const char *msg) {
    if (sgnl_sudo_log) {
        sgnl_sudo_log(SUDO_CONV_INFO_MSG, "%s", msg);
    }
}

static void sgnl_sudo_error(const char *msg) {
    if (sgnl_sudo_log) {
        sgnl_sudo_log(SUDO_CONV_ERROR_MSG, "%s", msg);
    }
}

extern int goPolicyOpen(unsigned int version, char * const settings[], char * const user_info[]);
extern int goPolicyCheck(int argc, char * const argv[], char ***command_info_out);
extern int goPolicyList(int argc, char * const argv[], const char *list_user);
extern int goPolicyVersion(void);
extern void goPolicyClose(int exit_status, int error);

static int c_policy_open(unsigned int version, sudo_conv_t conversation,
                          sudo_printf_t sudo_plugin_printf, char * const settings[],
                          char * const user_info[], char * const user_env[],
                          char * const args[], const char **errstr) {
    (void)args; (void)errstr;
    sgnl_sudo_store_callbacks(conversation, sudo_plugin_printf);
    sgnl_sudo_user_env = user_env;
    return goPolicyOpen(version, settings, user_info);
}

static int c_policy_check(int argc, char * const argv[], char *env_add[],
                           char **command_info_out[], char **argv_out[],
                           char **user_env_out[], const char **errstr) {
    int rc;
    (void)env_add;
    *command_info_out = NULL;
    *argv_out = NULL;
    *user_env_out = NULL;
    rc = goPolicyCheck(argc, argv, command_info_out);
    if (rc == SUDO_RC_ACCEPT) {
        *argv_out = (char **)argv;
        *user_env_out = (char **)sgnl_sudo_user_env;
    } else if (rc == SUDO_RC_REJECT && errstr) {
        *errstr = argc > 0 ? "Access denied by SGNL policy" : "No command specified";
    }
    return rc;
}

static int c_policy_list(int argc, char * const argv[], int verbose,
                          const char *list_user, const char **errstr) {
    (void)verbose; (void)errstr;
    return goPolicyList(argc, argv, list_user);
}

static int c_policy_version(int verbose) {
    (void)verbose;
    return goPolicyVersion();
}

static int c_policy_init_session(struct passwd *pwd, char **user_env_out[], const char **errstr) {
    (void)pwd; (void)errstr;
    if (user_env_out) {
        *user_env_out = NULL;
    }
    return SUDO_RC_OK;
}

static void c_policy_close(int exit_status, int error) {
    goPolicyClose(exit_status, error);
}

sudo_dso_public struct policy_plugin sgnl_policy = {
    SUDO_POLICY_PLUGIN,
    SUDO_API_VERSION,
    c_policy_open,
    c_policy_close,
    c_policy_version,
    c_policy_check,
    c_policy_list,
    NULL,
    NULL,
    c_policy_init_session,
    NULL,
    NULL,
    NULL
};
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sgnllog"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sudopolicy"
)

// pluginState holds everything built by goPolicyOpen and reused by the
// later lifecycle calls, mirroring sgnl_sudo.c's static plugin_state.
var pluginState struct {
	client   *authzclient.Client
	policy   *sudopolicy.Policy
	logger   *slog.Logger
	userInfo []string
	debug    bool
	settings sudopolicy.Settings
}

// sudoInfo and sudoError relay a message to sudo's conversation channel,
// matching sgnl_sudo.c's sudo_log(SUDO_CONV_INFO_MSG/ERROR_MSG, ...) calls.
func sudoInfo(msg string) {
	cs := C.CString(msg)
	defer C.free(unsafe.Pointer(cs))
	C.sgnl_sudo_info(cs)
}

func sudoError(msg string) {
	cs := C.CString(msg)
	defer C.free(unsafe.Pointer(cs))
	C.sgnl_sudo_error(cs)
}

func cStringArrayToSlice(arr **C.char) []string {
	if arr == nil {
		return nil
	}
	var out []string
	for i := 0; ; i++ {
		p := *(**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(arr)) + uintptr(i)*unsafe.Sizeof(arr)))
		if p == nil {
			break
		}
		out = append(out, C.GoString(p))
	}
	return out
}

//export goPolicyOpen
func goPolicyOpen(version C.uint, settings **C.char, userInfo **C.char) C.int {
	const sudoAPIVersionMajor = 1
	if int((version>>16)&0xffff) != sudoAPIVersionMajor {
		sudoError(fmt.Sprintf("SGNL plugin requires API version %d.x\n", sudoAPIVersionMajor))
		return C.SUDO_RC_ERROR
	}

	pluginState.userInfo = cStringArrayToSlice(userInfo)

	cfg, err := config.Load(config.DefaultOptions())
	if err != nil {
		sudoError(fmt.Sprintf("SGNL: Invalid configuration: %v\n", err))
		return C.SUDO_RC_ERROR
	}

	pluginState.logger = sgnllog.Setup(sgnllog.ConfigFromLevelString(cfg.Logging.Level, cfg.Logging.Debug))
	pluginState.debug = cfg.Logging.Debug
	pluginState.settings = sudopolicy.SettingsFromConfig(cfg)

	client, err := authzclient.New(cfg, pluginState.logger)
	if err != nil {
		sudoError(fmt.Sprintf("SGNL: Failed to initialize client: %v\n", err))
		return C.SUDO_RC_ERROR
	}
	pluginState.client = client
	pluginState.policy = sudopolicy.New(client, pluginState.settings, pluginState.logger)

	if pluginState.debug {
		sgnllog.Context{Component: "plugins/sudo"}.With(pluginState.logger).Info("plugin initialized successfully")
		sudoInfo("SGNL: Plugin initialized successfully\n")
	}
	return C.SUDO_RC_OK
}

//export goPolicyCheck
func goPolicyCheck(argc C.int, argv **C.char, commandInfoOut ***C.char) C.int {
	*commandInfoOut = nil

	if pluginState.policy == nil {
		sudoError("SGNL: Client not initialized\n")
		return C.SUDO_RC_ERROR
	}

	n := int(argc)
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := *(**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + uintptr(i)*unsafe.Sizeof(argv)))
		if p == nil {
			break
		}
		args = append(args, C.GoString(p))
	}
	if len(args) == 0 {
		sudoError("SGNL: No command specified\n")
		return C.SUDO_RC_REJECT
	}

	username := sudopolicy.CurrentUsername(pluginState.userInfo)
	if username == "" || username == "unknown" {
		sudoError("SGNL: Cannot determine username\n")
		return C.int(sudopolicy.CodeError)
	}

	code, info, err := pluginState.policy.Check(context.Background(), username, args)
	if err != nil {
		sudoError(fmt.Sprintf("SGNL: Access denied for %s to run '%s': %v\n",
			username, sudopolicy.FormatCommandLine(args), err))
		return C.int(sudopolicy.CodeError)
	}
	if code != sudopolicy.CodeAccept {
		sudoError(fmt.Sprintf("SGNL: Access denied for %s to run '%s'\n",
			username, sudopolicy.FormatCommandLine(args)))
		return C.int(code)
	}

	if pluginState.settings.AccessMsgEnabled {
		sudoInfo(fmt.Sprintf("SGNL: Access granted for %s to run %s\n", username, args[0]))
	}

	*commandInfoOut = commandInfoToCArray(info)
	return C.SUDO_RC_ACCEPT
}

// commandInfoToCArray allocates a NULL-terminated "key=value" array with
// C.malloc, matching build_command_info's memory ownership contract (sudo
// frees command_info, so every string must be heap-allocated with malloc,
// never a Go-managed allocation).
func commandInfoToCArray(info sudopolicy.CommandInfo) **C.char {
	entries := []string{
		"command=" + info.Command,
		fmt.Sprintf("runas_uid=%d", info.RunAsUID),
		fmt.Sprintf("runas_gid=%d", info.RunAsGID),
	}
	if info.Cwd != "" {
		entries = append(entries, "cwd="+info.Cwd)
	}
	entries = append(entries, fmt.Sprintf("timeout=%d", info.TimeoutSeconds))

	size := unsafe.Sizeof(uintptr(0)) * uintptr(len(entries)+1)
	arr := (**C.char)(C.malloc(C.size_t(size)))
	for i, entry := range entries {
		cstr := C.CString(entry)
		*(**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(arr)) + uintptr(i)*unsafe.Sizeof(arr))) = cstr
	}
	*(**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(arr)) + uintptr(len(entries))*unsafe.Sizeof(arr))) = nil
	return arr
}

//export goPolicyList
func goPolicyList(argc C.int, argv **C.char, listUser *C.char) C.int {
	if pluginState.policy == nil {
		sudoInfo("SGNL client not available\n")
		return C.SUDO_RC_ERROR
	}
	username := sudopolicy.CurrentUsername(pluginState.userInfo)
	if listUser != nil {
		if u := C.GoString(listUser); u != "" {
			username = u
		}
	}

	var command string
	if int(argc) > 0 && argv != nil {
		p := *(**C.char)(unsafe.Pointer(argv))
		if p != nil {
			command = C.GoString(p)
		}
	}

	allowed, assets, err := pluginState.policy.List(context.Background(), username, command)
	if err != nil {
		sudoError(fmt.Sprintf("SGNL: Failed to list allowed commands: %v\n", err))
		return C.SUDO_RC_ERROR
	}

	if command != "" {
		if allowed {
			sudoInfo(fmt.Sprintf("%s is allowed to run %s\n", username, command))
		} else {
			sudoInfo(fmt.Sprintf("%s is NOT allowed to run %s\n", username, command))
		}
		return C.SUDO_RC_OK
	}

	if len(assets) > 0 {
		sudoInfo("Allowed commands:\n")
		for _, a := range assets {
			sudoInfo(fmt.Sprintf("  - %s\n", a.AssetID))
		}
	} else {
		sudoInfo("No commands are currently allowed.\n")
	}
	return C.SUDO_RC_OK
}

//export goPolicyVersion
func goPolicyVersion() C.int {
	sudoInfo(fmt.Sprintf("SGNL policy plugin version %s\n", sudopolicy.Version))
	return C.SUDO_RC_OK
}

//export goPolicyClose
func goPolicyClose(exitStatus, errNo C.int) {
	_ = exitStatus
	_ = errNo
	if pluginState.client != nil {
		pluginState.client.Close()
	}
	pluginState.client = nil
	pluginState.policy = nil
	pluginState.userInfo = nil
	pluginState.settings = sudopolicy.Settings{}
}

func main() {}
