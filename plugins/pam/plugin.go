// Command pam builds the SGNL PAM account-management module as a C shared
// object (-buildmode=c-shared). It exports the pam_sm_* entry points
// security/pam_modules.h expects and delegates the actual decision to
// lib/pamaccount, mirroring original_source/src/c/modules/pam/sgnl_pam.c.
package main

/*
#cgo LDFLAGS: -shared
#include <security/pam_appl.h>
#include <security/pam_modules.h>
#include <stdlib.h>

static const char *sgnl_pam_get_user(pam_handle_t *pamh) {
    const char *username = NULL;
    pam_get_user(pamh, &username, "Username: ");
    return username;
}

static const char *sgnl_pam_get_item(pam_handle_t *pamh, int item) {
    const void *value = NULL;
    pam_get_item(pamh, item, &value);
    return (const char *)value;
}

extern void goModuleCleanup(void);

__attribute__((destructor))
static void sgnl_pam_module_cleanup(void) {
    goModuleCleanup();
}
*/
import "C"

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
	"github.com/sgnl-ai/sgnl-linux-host/lib/pamaccount"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sgnllog"
)

var (
	moduleMu sync.Mutex
	adapter  *pamaccount.Adapter
	client   *authzclient.Client
	logger   *slog.Logger
)

// ensureAdapter lazily builds the shared authzclient.Client and
// pamaccount.Adapter, matching init_sgnl_client's "initialize once, reuse"
// contract: the module may be invoked many times within one process
// lifetime (one per login attempt) and should not reopen a transport each
// time.
func ensureAdapter() *pamaccount.Adapter {
	moduleMu.Lock()
	defer moduleMu.Unlock()

	if adapter != nil {
		return adapter
	}

	cfg, err := config.Load(config.DefaultOptions())
	if err != nil {
		return nil
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "SGNL-PAM/1.0"
	}

	logger = sgnllog.Setup(sgnllog.ConfigFromLevelString(cfg.Logging.Level, cfg.Logging.Debug))

	c, err := authzclient.New(cfg, logger)
	if err != nil {
		sgnllog.Context{Component: "plugins/pam"}.With(logger).Error("failed to initialize client", "error", err)
		return nil
	}
	client = c
	adapter = pamaccount.New(client, logger)
	return adapter
}

func outcomeToPAM(o pamaccount.Outcome) C.int {
	switch o {
	case pamaccount.OutcomeSuccess:
		return C.PAM_SUCCESS
	case pamaccount.OutcomePermDenied:
		return C.PAM_PERM_DENIED
	default:
		return C.PAM_AUTHINFO_UNAVAIL
	}
}

// pamItems reads PAM_USER, PAM_SERVICE, and PAM_RHOST the way
// pam_sm_acct_mgmt does, tolerating a missing RHOST (local sessions have
// none).
func pamItems(pamh *C.pam_handle_t) (username, service, rhost string) {
	if u := C.sgnl_pam_get_user(pamh); u != nil {
		username = C.GoString(u)
	}
	if s := C.sgnl_pam_get_item(pamh, C.PAM_SERVICE); s != nil {
		service = C.GoString(s)
	}
	if h := C.sgnl_pam_get_item(pamh, C.PAM_RHOST); h != nil {
		rhost = C.GoString(h)
	}
	return username, service, rhost
}

//export pam_sm_acct_mgmt
func pam_sm_acct_mgmt(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	username, service, rhost := pamItems(pamh)
	if username == "" || service == "" {
		return C.PAM_AUTHINFO_UNAVAIL
	}

	a := ensureAdapter()
	if a == nil {
		return C.PAM_AUTHINFO_UNAVAIL
	}

	outcome := a.CheckAccess(context.Background(), pamaccount.Request{
		Username: username,
		Service:  service,
		RHost:    rhost,
	})
	return outcomeToPAM(outcome)
}

//export pam_sm_setcred
func pam_sm_setcred(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	return C.PAM_SUCCESS
}

//export pam_sm_authenticate
func pam_sm_authenticate(pamh *C.pam_handle_t, flags, argc C.int, argv **C.char) C.int {
	return C.PAM_SUCCESS
}

// goModuleCleanup runs when the shared object is unloaded, mirroring
// sgnl_pam.c's pam_module_cleanup destructor: it closes the shared client,
// which clears its token, and drops the module's client and adapter.
//
//export goModuleCleanup
func goModuleCleanup() {
	moduleMu.Lock()
	defer moduleMu.Unlock()
	if client != nil {
		client.Close()
	}
	client = nil
	adapter = nil
}

func main() {}
