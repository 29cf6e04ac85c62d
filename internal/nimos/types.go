package nimos

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Collection paths on the v1 management surface.
const (
	pathTokens            = "/v1/tokens"
	pathVolumes           = "/v1/volumes/detail"
	pathInitiatorGroups   = "/v1/initiator_groups/detail"
	pathChapUsers         = "/v1/chap_users/detail"
	pathProtocolEndpoints = "/v1/protocol_endpoints/detail"
	pathSnapshots         = "/v1/snapshots/detail"
	pathACRs              = "/v1/access_control_records"
	pathACRsDetail        = "/v1/access_control_records/detail"
)

// dataEnvelope wraps every request and response body on the wire.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type apiMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// apiError is the array's non-2xx body.
type apiError struct {
	Messages []apiMessage `json:"messages"`
}

func (e apiError) text() string {
	if len(e.Messages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		if strings.TrimSpace(m.Text) != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "; ")
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	SessionToken string `json:"session_token"`
}

// object is one decoded array-side resource.
type object map[string]any

func (o object) id() string {
	if v, ok := o["id"].(string); ok {
		return v
	}
	return ""
}

// attrs flattens the object into string attributes: numbers render without
// exponent, lists join on commas. The reconciler compares attributes as
// strings, so the flattening must stay stable.
func (o object) attrs() map[string]string {
	out := make(map[string]string, len(o))
	for k, v := range o {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			out[k] = strings.Join(parts, ",")
		case nil:
			// dropped
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
