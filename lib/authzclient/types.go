package authzclient

// Decision is the outcome of a single access evaluation.
type Decision int

const (
	DecisionDeny Decision = iota
	DecisionAllow
)

func (d Decision) String() string {
	if d == DecisionAllow {
		return "allow"
	}
	return "deny"
}

// AccessQuery is one principal/asset/action evaluation request. Sudo's
// batch check builds one of these per argv position (see
// SPEC_FULL.md §4.5 / sgnl_sudo.c's check_sudo_access_with_args).
type AccessQuery struct {
	PrincipalID string
	AssetID     string
	Action      string
}

// AccessResult pairs an AccessQuery with the decision the service returned
// for it. Results always correspond to the request slice by position, not
// by any identifier in the payload (SPEC_FULL.md §3, §8): the server is not
// required to echo the query back, so the client cannot correlate results
// any other way.
type AccessResult struct {
	Query    AccessQuery
	Decision Decision
	Reason   string
}

// SearchQuery requests the set of assets reachable by principal under
// action, optionally scoped to a type.
type SearchQuery struct {
	PrincipalID string
	Action      string
	AssetType   string
}

// SearchResult is one asset identifier the principal is allowed to reach
// under the queried action.
type SearchResult struct {
	AssetID string
}

// wire types: the JSON shapes exchanged with /access/v2/evaluations and
// /access/v2/search. Kept private and separate from the public types above
// so the public API is insulated from wire-format churn.
//
// Both request bodies nest a single "principal" object (id + deviceId)
// alongside a "queries" array, matching
// original_source/src/c/lib/libsgnl.c's sgnl_evaluate_access_batch and
// sgnl_search_assets request construction. A batch therefore shares one
// principal across every query in it — true of every caller in this
// module, which always batches one username's queries together.

type evaluationRequest struct {
	Principal principalRef     `json:"principal"`
	Queries   []evaluationItem `json:"queries"`
}

type principalRef struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceId"`
}

type evaluationItem struct {
	AssetID string `json:"assetId,omitempty"`
	Action  string `json:"action"`
}

type evaluationResponse struct {
	Decisions []decisionEntry `json:"decisions"`
}

type decisionEntry struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	AssetID  string `json:"assetId,omitempty"`
}

type searchRequest struct {
	Principal principalRef  `json:"principal"`
	Queries   []searchQuery `json:"queries"`
}

type searchQuery struct {
	Action    string `json:"action"`
	AssetType string `json:"assetType,omitempty"`
}

// The search response reuses evaluationResponse: spec.md §6 gives search the
// same decisions[]/assetId wire shape as evaluation, so there is no separate
// searchResponse type. A "decision" of "Allow" on an entry marks its assetId
// as reachable; anything else is filtered out.

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
