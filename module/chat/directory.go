package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Profile is the slice of a user the chat sidebar needs.
type Profile struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Directory resolves user profiles. The user service is a separate process;
// the chat service only ever needs lookup-by-ID from it.
type Directory interface {
	Lookup(ctx context.Context, userID string) (*Profile, error)
}

// HTTPDirectory resolves profiles against the user service's REST API.
type HTTPDirectory struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HTTPDirectory) Lookup(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/api/v1/user/"+userID, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build user lookup")
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "user lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("user lookup: status %d", resp.StatusCode)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode user")
	}
	return &p, nil
}
