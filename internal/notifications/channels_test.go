package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wallcraft/storefront-backend/pkg/config"
)

func smtpTestConfig() config.SMTPConfig {
	return config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "shop@example.com"}
}

func TestNewEmailSenderSelection(t *testing.T) {
	_, isSMTP := NewEmailSender(smtpTestConfig(), nil).(*SMTPSender)
	assert.True(t, isSMTP)

	_, isLog := NewEmailSender(config.SMTPConfig{}, nil).(*LogSender)
	assert.True(t, isLog)
}

func TestLogChannelsNeverFail(t *testing.T) {
	assert.NoError(t, NewLogSender(nil).Send(context.Background(), Email{To: []string{"a@example.com"}}))
	assert.NoError(t, NewLogMessenger(nil).Send(context.Background(), "999", "hi"))
}
