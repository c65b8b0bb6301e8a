package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/muvance-crm/pkg/logging"
)

type fakeSendGrid struct {
	status int
	err    error
	sent   []*mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSendGridSenderDefaults(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "crm@example.com"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "crm@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)
}

func TestSendGridSenderStatusHandling(t *testing.T) {
	api := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: api, fromEmail: "crm@example.com", fromName: "CRM", logger: logging.Default()}

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "ops@example.com", Subject: "hi", Body: "text"}))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "hi", api.sent[0].Subject)

	api.status = 401
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "ops@example.com"}))

	api.err = errors.New("network")
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "ops@example.com"}))

	var unset *SendGridSender
	assert.Error(t, unset.Send(context.Background(), EmailMessage{}))
}

func TestSESSenderBuildsInput(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "crm@example.com"}, nil)

	require.NoError(t, sender.Send(context.Background(), EmailMessage{
		To:      "ops@example.com",
		Subject: "New appointment",
		Body:    "plain",
		HTML:    "<p>html</p>",
	}))
	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "Muvance CRM <crm@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))

	api.err = errors.New("throttled")
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "ops@example.com"}))
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
