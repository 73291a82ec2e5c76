package achievement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
)

// Classifier turns a raw response into events or a kinded error. It is the
// single place that decides CredentialInvalid versus Transient, so it can be
// swapped when the source's response shapes change.
type Classifier func(status int, body []byte) ([]models.AchievementEvent, error)

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type submissionList struct {
	Recent []submission `json:"recentAcSubmissionList"`
}

type submission struct {
	ID        flexString `json:"id"`
	Title     string     `json:"title"`
	Timestamp flexInt    `json:"timestamp"`
}

// ClassifyGraphQL is the default classifier:
//   - 401 is CredentialInvalid
//   - any other non-2xx status is Transient
//   - a body that is not a JSON object (including null or an array) is
//     Transient
//   - an object without "data", or with "data": null, is CredentialInvalid
//     (a valid session always yields a data object)
//   - a null or missing submission list inside data is an empty result
func ClassifyGraphQL(status int, body []byte) ([]models.AchievementEvent, error) {
	if status == http.StatusUnauthorized {
		return nil, gateerr.CredentialInvalid(op, "401 Unauthorized")
	}
	if status < 200 || status > 299 {
		return nil, gateerr.Transient(op, fmt.Errorf("HTTP %d: %s", status, snippet(body)))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, gateerr.Transient(op, fmt.Errorf("response is not a JSON object: %s", snippet(body)))
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("malformed response: %w", err))
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		if len(env.Errors) > 0 {
			return nil, gateerr.CredentialInvalid(op, "no data in response (likely expired session): %s", env.Errors[0].Message)
		}
		return nil, gateerr.CredentialInvalid(op, "no data in response (likely expired session)")
	}

	var list submissionList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("malformed data: %w", err))
	}

	events := make([]models.AchievementEvent, 0, len(list.Recent))
	for _, s := range list.Recent {
		events = append(events, models.AchievementEvent{
			ID:        string(s.ID),
			Title:     s.Title,
			Timestamp: int64(s.Timestamp),
		})
	}
	return events, nil
}

func snippet(body []byte) string {
	const limit = 200
	s := string(bytes.TrimSpace(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts epoch seconds as a JSON number or a numeric string
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
