package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher sends push notifications through Firebase Cloud Messaging.
type Pusher struct {
	client *messaging.Client
}

// NewPusher initializes the FCM client from a service-account key file.
func NewPusher(ctx context.Context, credentialsFile string) (*Pusher, error) {
	opt := option.WithCredentialsFile(credentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	return &Pusher{client: client}, nil
}

// Send delivers one push message to a device token.
func (p *Pusher) Send(ctx context.Context, token, title, body, link string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("push client not initialized")
	}
	if token == "" {
		return fmt.Errorf("empty device token")
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"link": link,
		},
	}

	_, err := p.client.Send(ctx, message)
	return err
}
