package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type templateData struct {
	OwnerName     string
	RequesterName string
	ResourceType  string
	ResourceName  string
	Status        string
	Message       string
}

func TestRenderAccessRequest(t *testing.T) {
	m := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com")

	msg, err := m.render(AccessRequestTemplate, "Alice", "alice@example.com", templateData{
		OwnerName:     "Alice",
		RequesterName: "Bob",
		ResourceType:  "category",
		ResourceName:  "Electronics",
		Message:       "please share",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bob asked for access to Electronics"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "please share")
}

func TestRenderAccessDecision(t *testing.T) {
	m := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com")

	msg, err := m.render(AccessDecisionTemplate, "Bob", "bob@example.com", templateData{
		OwnerName:     "Alice",
		RequesterName: "Bob",
		ResourceType:  "product",
		ResourceName:  "Desk lamp",
		Status:        "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Your access request for Desk lamp was approved"}, msg.GetHeader("Subject"))
}

func TestSendRequiresRecipient(t *testing.T) {
	m := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com")
	assert.ErrorIs(t, m.Send(AccessRequestTemplate, "Bob", "", nil), ErrNoRecipient)
}

func TestUnknownTemplate(t *testing.T) {
	m := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com")
	_, err := m.render("missing.tmpl", "Bob", "bob@example.com", nil)
	assert.Error(t, err)
}
