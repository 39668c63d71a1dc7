package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gpsr/internal/domain/users"

	"github.com/9ssi7/exponent"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePush struct {
	sent []*exponent.Message
	err  error
	// rejected tokens are answered with DeviceNotRegistered
	rejected map[exponent.Token]bool
}

func (f *fakePush) Publish(_ context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	f.sent = append(f.sent, msgs...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*exponent.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp := &exponent.MessageResponse{MessageItem: m, Status: "ok"}
		if f.rejected[*m.To[0]] {
			resp.Status = "error"
			resp.Details = exponent.Data{"error": string(exponent.ErrorMsgDeviceNotRegistered)}
		}
		out = append(out, resp)
	}
	return out, nil
}

type fakeTokens struct {
	byUser  map[uuid.UUID][]string
	removed []string
}

func (f *fakeTokens) Upsert(context.Context, uuid.UUID, string, json.RawMessage) error { return nil }
func (f *fakeTokens) Remove(context.Context, uuid.UUID, string) error                  { return nil }
func (f *fakeTokens) RemoveTokens(_ context.Context, tokens []string) error {
	f.removed = append(f.removed, tokens...)
	return nil
}
func (f *fakeTokens) PruneStale(context.Context, time.Duration) (int64, error)         { return 0, nil }
func (f *fakeTokens) TokensByUserIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := map[uuid.UUID][]string{}
	for _, id := range ids {
		if t, ok := f.byUser[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func TestPushAccessRequestedGoesToOwner(t *testing.T) {
	owner, requester := uuid.New(), uuid.New()
	push := &fakePush{}
	tokens := &fakeTokens{byUser: map[uuid.UUID][]string{
		owner:     {"ExponentPushToken[owner-a]", "ExponentPushToken[owner-b]"},
		requester: {"ExponentPushToken[requester]"},
	}}
	n := NewPushNotifier(push, tokens)

	err := n.AccessRequested(context.Background(), AccessEvent{
		RequestID: uuid.New(), OwnerID: owner, RequesterID: requester,
		RequesterName: "Bob", ResourceName: "Electronics", ResourceType: "category",
	})
	require.NoError(t, err)

	require.Len(t, push.sent, 2)
	assert.Equal(t, "New access request", push.sent[0].Title)
	assert.Equal(t, "Bob wants access to Electronics", push.sent[0].Body)
	assert.Equal(t, exponent.Token("ExponentPushToken[owner-a]"), *push.sent[0].To[0])
	assert.Equal(t, "category", push.sent[0].Data["resourceType"])
}

func TestPushAccessDecidedGoesToRequester(t *testing.T) {
	owner, requester := uuid.New(), uuid.New()
	push := &fakePush{}
	tokens := &fakeTokens{byUser: map[uuid.UUID][]string{requester: {"ExponentPushToken[r]"}}}
	n := NewPushNotifier(push, tokens)

	err := n.AccessDecided(context.Background(), AccessEvent{
		OwnerID: owner, RequesterID: requester, OwnerName: "Alice",
		ResourceName: "Desk lamp", Status: "approved",
	})
	require.NoError(t, err)
	require.Len(t, push.sent, 1)
	assert.Equal(t, "Access granted", push.sent[0].Title)
	assert.Equal(t, "Alice shared Desk lamp with you", push.sent[0].Body)
}

func TestPushDropsUnregisteredTokens(t *testing.T) {
	owner := uuid.New()
	push := &fakePush{rejected: map[exponent.Token]bool{"ExponentPushToken[old-phone]": true}}
	tokens := &fakeTokens{byUser: map[uuid.UUID][]string{
		owner: {"ExponentPushToken[old-phone]", "ExponentPushToken[new-phone]"},
	}}
	n := NewPushNotifier(push, tokens)

	err := n.AccessRequested(context.Background(), AccessEvent{OwnerID: owner, RequesterName: "Bob"})
	require.NoError(t, err)
	assert.Len(t, push.sent, 2)
	assert.Equal(t, []string{"ExponentPushToken[old-phone]"}, tokens.removed)
}

func TestPushKeepsTokensOnTransportError(t *testing.T) {
	owner := uuid.New()
	push := &fakePush{err: errors.New("expo unavailable")}
	tokens := &fakeTokens{byUser: map[uuid.UUID][]string{owner: {"ExponentPushToken[a]"}}}

	err := NewPushNotifier(push, tokens).AccessRequested(context.Background(), AccessEvent{OwnerID: owner})
	assert.Error(t, err)
	assert.Empty(t, tokens.removed)
}

func TestPushWithoutTokens(t *testing.T) {
	n := NewPushNotifier(&fakePush{}, &fakeTokens{})
	err := n.AccessDecided(context.Background(), AccessEvent{RequesterID: uuid.New()})
	assert.ErrorIs(t, err, ErrNoPushTokens)
}

type recordingNotifier struct {
	requested, decided int
	err                error
}

func (r *recordingNotifier) AccessRequested(context.Context, AccessEvent) error {
	r.requested++
	return r.err
}

func (r *recordingNotifier) AccessDecided(context.Context, AccessEvent) error {
	r.decided++
	return r.err
}

func TestFanoutIgnoresMissingTokens(t *testing.T) {
	a := &recordingNotifier{err: ErrNoPushTokens}
	b := &recordingNotifier{}
	f := Fanout{a, b}

	assert.NoError(t, f.AccessRequested(context.Background(), AccessEvent{}))
	assert.NoError(t, f.AccessDecided(context.Background(), AccessEvent{}))
	assert.Equal(t, 1, a.requested)
	assert.Equal(t, 1, b.decided)
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("smtp down")
	f := Fanout{&recordingNotifier{err: boom}, &recordingNotifier{}}
	assert.ErrorIs(t, f.AccessRequested(context.Background(), AccessEvent{}), boom)
}

type fakeMailer struct {
	template, name, email string
	data                  any
}

func (f *fakeMailer) Send(templateFile, username, email string, data any) error {
	f.template, f.name, f.email, f.data = templateFile, username, email, data
	return nil
}

type fakeUsers struct {
	users.Store
	byID map[uuid.UUID]*users.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func TestMailNotifierAddressesTheOtherParty(t *testing.T) {
	owner := &users.User{ID: uuid.New(), FirstName: "Alice", Email: "alice@example.com"}
	requester := &users.User{ID: uuid.New(), FirstName: "Bob", Email: "bob@example.com"}
	m := &fakeMailer{}
	n := NewMailNotifier(m, &fakeUsers{byID: map[uuid.UUID]*users.User{owner.ID: owner, requester.ID: requester}})
	ev := AccessEvent{OwnerID: owner.ID, RequesterID: requester.ID}

	require.NoError(t, n.AccessRequested(context.Background(), ev))
	assert.Equal(t, "access_request.tmpl", m.template)
	assert.Equal(t, "alice@example.com", m.email)
	assert.Equal(t, "Alice", m.name)

	require.NoError(t, n.AccessDecided(context.Background(), ev))
	assert.Equal(t, "access_decision.tmpl", m.template)
	assert.Equal(t, "bob@example.com", m.email)
}

func TestMailNotifierMissingUser(t *testing.T) {
	n := NewMailNotifier(&fakeMailer{}, &fakeUsers{byID: map[uuid.UUID]*users.User{}})
	err := n.AccessRequested(context.Background(), AccessEvent{OwnerID: uuid.New()})
	assert.ErrorIs(t, err, users.ErrNotFound)
}
