package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/jrsteele09/go-auth-bff/notify"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	sent []*mail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := notify.NewSMTPSender("smtp.example.com", 587, "acct", "pw", "noreply@example.com", notify.WithDialer(d))

	require.NoError(t, s.Send(context.Background(), notify.PasswordChanged("john@example.com", "Auth Gateway")))
	require.Len(t, d.sent, 1)
	require.Equal(t, []string{"john@example.com"}, d.sent[0].GetHeader("To"))
	require.Equal(t, []string{"noreply@example.com"}, d.sent[0].GetHeader("From"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "your password was changed")
}

func TestSMTPSender_SendError(t *testing.T) {
	s := notify.NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com", notify.WithDialer(&fakeDialer{err: errors.New("connection refused")}))
	err := s.Send(context.Background(), notify.Message{To: "a@example.com", Subject: "x", TextBody: "y"})
	require.ErrorContains(t, err, "connection refused")
}

func TestNoopSender(t *testing.T) {
	require.NoError(t, notify.NoopSender{}.Send(context.Background(), notify.Message{To: "a@example.com"}))
}
