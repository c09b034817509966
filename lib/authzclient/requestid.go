package authzclient

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// newRequestID builds a request identifier from wall-clock time, the
// process id, and a random component, matching libsgnl.c's
// generate_request_id (timestamp + pid disambiguate concurrent processes on
// the same host; the random suffix disambiguates concurrent requests within
// one process).
func newRequestID() string {
	return fmt.Sprintf("req-%d-%d-%s", time.Now().UnixNano(), os.Getpid(), uuid.NewString()[:8])
}
