// Package push delivers device notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
)

// ErrUnregistered marks a device token FCM no longer accepts.
var ErrUnregistered = errors.New("push token unregistered")

// Message is one device notification.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers push notifications.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FCMSender sends through the FCM HTTP v1 API.
type FCMSender struct {
	svc     *fcm.Service
	project string
}

// NewFCMSender builds a sender for the configured Firebase project.
func NewFCMSender(ctx context.Context, gcp config.GCPConfig, cfg config.PushConfig, opts ...option.ClientOption) (*FCMSender, error) {
	project := strings.TrimSpace(cfg.ProjectID)
	if project == "" {
		project = strings.TrimSpace(gcp.ProjectID)
	}
	if project == "" {
		return nil, errors.New("push project id is required")
	}
	if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create fcm service: %w", err)
	}
	return &FCMSender{svc: svc, project: project}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Token) == "" {
		return ErrUnregistered
	}
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: msg.Token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}
	_, err := s.svc.Projects.Messages.Send("projects/"+s.project, req).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%w: %s", ErrUnregistered, apiErr.Message)
	}
	return fmt.Errorf("fcm send: %w", err)
}

// NoopSender is used when push is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }
