// Package pamaccount implements the PAM account-management hook's access
// check: one evaluation per login attempt, mapped to the PAM_SUCCESS /
// PAM_PERM_DENIED / PAM_AUTHINFO_UNAVAIL outcome triad. It is grounded on
// original_source/src/c/modules/pam/sgnl_pam.c.
package pamaccount

import (
	"context"
	"log/slog"

	"github.com/sgnl-ai/sgnl-linux-host/lib/authzclient"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sgnllog"
)

// Outcome mirrors the three PAM return codes sgnl_pam.c's check_access can
// produce. pam_sm_setcred and pam_sm_authenticate are intentionally
// unimplemented in both the C original and here — they always report
// OutcomeSuccess without consulting the adapter at all.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePermDenied
	OutcomeAuthInfoUnavail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "PAM_SUCCESS"
	case OutcomePermDenied:
		return "PAM_PERM_DENIED"
	default:
		return "PAM_AUTHINFO_UNAVAIL"
	}
}

// Adapter evaluates PAM account-management requests against an
// authzclient.Client.
type Adapter struct {
	client *authzclient.Client
	logger *slog.Logger
}

// New builds an Adapter. client must already be validated.
func New(client *authzclient.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = sgnllog.Get(context.Background())
	}
	return &Adapter{client: client, logger: logger}
}

// Request carries the PAM items check_access needs: the username
// (PAM_USER), the requesting service name (PAM_SERVICE), and the remote
// host, if any (PAM_RHOST, used only for logging).
type Request struct {
	Username string
	Service  string
	RHost    string
}

// CheckAccess is the Go analog of check_access / pam_sm_acct_mgmt: it
// evaluates Username's access to Service under the implicit "execute" action
// and maps the decision to a PAM outcome. A transport or auth failure
// yields OutcomeAuthInfoUnavail, matching the C original's fail-closed
// default for every non-decision error.
func (a *Adapter) CheckAccess(ctx context.Context, req Request) Outcome {
	logCtx := sgnllog.Context{
		Component:   "pamaccount",
		Function:    "CheckAccess",
		PrincipalID: req.Username,
		AssetID:     req.Service,
		Action:      "execute",
	}

	if req.Username == "" || req.Service == "" {
		logCtx.With(a.logger).Error("missing username or service")
		return OutcomeAuthInfoUnavail
	}

	host := req.RHost
	if host == "" {
		host = "local"
	}
	logCtx.With(a.logger).Info("processing account request", "host", host)

	result, err := a.client.Evaluate(ctx, authzclient.AccessQuery{
		PrincipalID: req.Username,
		AssetID:     req.Service,
		Action:      "execute",
	})
	if err != nil {
		logCtx.With(a.logger).Error("access check error", "error", err)
		return OutcomeAuthInfoUnavail
	}

	if result.Decision == authzclient.DecisionAllow {
		logCtx.With(a.logger).Info("access granted")
		return OutcomeSuccess
	}
	logCtx.With(a.logger).Info("access denied")
	return OutcomePermDenied
}
