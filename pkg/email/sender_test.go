package email_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{To: "jane@example.com", Subject: "Plan updated", HTMLBody: "<p>hi</p>"}
	assert.NoError(t, valid.Validate())

	tests := map[string]email.Message{
		"bad recipient": {To: "not-an-email", Subject: "s", TextBody: "b"},
		"no subject":    {To: "jane@example.com", Subject: "  ", TextBody: "b"},
		"no body":       {To: "jane@example.com", Subject: "s"},
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, msg.Validate(), email.ErrInvalidMessage)
		})
	}
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	s, err := email.NewSender(email.Config{}, log)
	require.NoError(t, err)
	require.IsType(t, &email.LogSender{}, s)

	err = s.Send(context.Background(), email.Message{To: "jane@example.com", Subject: "Plan updated", TextBody: "b"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "jane@example.com")

	s, err = email.NewSender(email.Config{
		PostmarkServerToken: "token",
		SenderEmail:         "billing@example.com",
		SupportEmail:        "support@example.com",
	}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.PostmarkSender{}, s)

	_, err = email.NewPostmarkSender(email.Config{PostmarkServerToken: "token", SenderEmail: "bad", SupportEmail: "support@example.com"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}
