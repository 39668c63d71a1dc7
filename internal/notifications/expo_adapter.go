package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

type ExpoAdapter struct {
	client *exponent.Client
}

// NewExpoAdapter builds an Expo client. accessToken is optional and only
// needed when push security is enabled for the Expo project.
func NewExpoAdapter(accessToken string) *ExpoAdapter {
	var client *exponent.Client
	if accessToken != "" {
		client = exponent.NewClient(exponent.WithAccessToken(accessToken))
	} else {
		client = exponent.NewClient()
	}
	return &ExpoAdapter{client: client}
}

func (a *ExpoAdapter) Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	return a.client.Publish(ctx, msgs)
}
