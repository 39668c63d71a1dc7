package notifications

import (
	"context"

	"gpsr/internal/domain/users"
	"gpsr/internal/mailer"
)

// MailNotifier emails the other party of an access request.
type MailNotifier struct {
	mailer mailer.Client
	users  users.Store
}

func NewMailNotifier(m mailer.Client, u users.Store) *MailNotifier {
	return &MailNotifier{mailer: m, users: u}
}

func (n *MailNotifier) AccessRequested(ctx context.Context, ev AccessEvent) error {
	owner, err := n.users.GetByID(ctx, ev.OwnerID)
	if err != nil {
		return err
	}
	return n.mailer.Send(mailer.AccessRequestTemplate, owner.DisplayName(), owner.Email, ev)
}

func (n *MailNotifier) AccessDecided(ctx context.Context, ev AccessEvent) error {
	requester, err := n.users.GetByID(ctx, ev.RequesterID)
	if err != nil {
		return err
	}
	return n.mailer.Send(mailer.AccessDecisionTemplate, requester.DisplayName(), requester.Email, ev)
}
