package mailer

import (
	"embed"
	"errors"
)

const (
	FromName               = "GPSR Records"
	maxRetires             = 3
	AccessRequestTemplate  = "access_request.tmpl"
	AccessDecisionTemplate = "access_decision.tmpl"
)

//go:embed "templates"
var FS embed.FS

var ErrNoRecipient = errors.New("mailer: recipient email is empty")

type Client interface {
	Send(templateFile, username, email string, data any) error
}
