package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_RequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)
	_, err = NewSMTPSender(SMTPConfig{From: "ops@example.com"})
	assert.Error(t, err)
}

func TestSend_BuildsMessageAndDialer(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "ops@example.com", TLSMode: "ssl"})
	require.NoError(t, err)

	var gotDialer *mail.Dialer
	var raw bytes.Buffer
	s.dial = func(d *mail.Dialer, m ...*mail.Message) error {
		gotDialer = d
		_, err := m[0].WriteTo(&raw)
		return err
	}

	require.NoError(t, s.Send(context.Background(), "admin@printdesk.io", "Setup failed", "texto", "<p>html</p>"))

	require.NotNil(t, gotDialer)
	assert.True(t, gotDialer.SSL)
	assert.Equal(t, "smtp.example.com", gotDialer.Host)
	body := raw.String()
	assert.Contains(t, body, "Subject: Setup failed")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "texto")
}

func TestSend_WrapsDialError(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "ops@example.com"})
	require.NoError(t, err)
	boom := errors.New("connection refused")
	s.dial = func(*mail.Dialer, ...*mail.Message) error { return boom }

	err = s.Send(context.Background(), "a@x.com", "s", "t", "")
	assert.ErrorIs(t, err, boom)
}
