package notifications

import (
	"context"
	"errors"
	"fmt"

	"gpsr/internal/domain/pushtokens"

	"github.com/9ssi7/exponent"
	"github.com/google/uuid"
)

var ErrNoPushTokens = errors.New("no push tokens")

// AccessEvent describes a request being filed or decided.
type AccessEvent struct {
	RequestID     uuid.UUID
	RequesterID   uuid.UUID
	RequesterName string
	OwnerID       uuid.UUID
	OwnerName     string
	ResourceType  string
	ResourceID    uuid.UUID
	ResourceName  string
	Status        string
	Message       string
}

type PushNotifier struct {
	push   PushSender
	tokens pushtokens.Store
}

func NewPushNotifier(push PushSender, tokens pushtokens.Store) *PushNotifier {
	return &PushNotifier{push: push, tokens: tokens}
}

// AccessRequested pings the owner.
func (n *PushNotifier) AccessRequested(ctx context.Context, ev AccessEvent) error {
	title := "New access request"
	body := fmt.Sprintf("%s wants access to %s", ev.RequesterName, ev.ResourceName)
	return n.send(ctx, ev.OwnerID, title, body, ev, "incoming-requests-screen")
}

// AccessDecided pings the requester.
func (n *PushNotifier) AccessDecided(ctx context.Context, ev AccessEvent) error {
	var title, body string
	switch ev.Status {
	case "approved":
		title = "Access granted"
		body = fmt.Sprintf("%s shared %s with you", ev.OwnerName, ev.ResourceName)
	case "rejected":
		title = "Access request declined"
		body = fmt.Sprintf("%s declined your request for %s", ev.OwnerName, ev.ResourceName)
	default:
		title = "Access request update"
		body = fmt.Sprintf("Your request for %s has an update", ev.ResourceName)
	}
	return n.send(ctx, ev.RequesterID, title, body, ev, "outgoing-requests-screen")
}

func (n *PushNotifier) send(ctx context.Context, userID uuid.UUID, title, body string, ev AccessEvent, screen string) error {
	tokensMap, err := n.tokens.TokensByUserIDs(ctx, []uuid.UUID{userID})
	if err != nil {
		return err
	}
	tokens := tokensMap[userID]
	if len(tokens) == 0 {
		return ErrNoPushTokens
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			// data drives deep linking when the notification is tapped
			Data: map[string]string{
				"type":         "access_request",
				"requestId":    ev.RequestID.String(),
				"resourceType": ev.ResourceType,
				"resourceId":   ev.ResourceID.String(),
				"status":       ev.Status,
				"screen":       screen,
			},
		})
	}

	responses, err := n.push.Publish(ctx, msgs)
	if err != nil {
		return err
	}
	if dead := unregisteredTokens(responses); len(dead) > 0 {
		if err := n.tokens.RemoveTokens(ctx, dead); err != nil {
			return fmt.Errorf("remove unregistered push tokens: %w", err)
		}
	}
	return nil
}

// unregisteredTokens picks the recipients Expo reports as DeviceNotRegistered.
func unregisteredTokens(responses []*exponent.MessageResponse) []string {
	var dead []string
	for _, resp := range responses {
		if resp == nil || resp.IsOk() || resp.MessageItem == nil {
			continue
		}
		if exponent.ErrorMsg(resp.Details["error"]) != exponent.ErrorMsgDeviceNotRegistered {
			continue
		}
		for _, to := range resp.MessageItem.To {
			if to != nil {
				dead = append(dead, string(*to))
			}
		}
	}
	return dead
}
