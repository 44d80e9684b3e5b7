package emailsvc

import (
	"bytes"
	"context"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

func TestConsoleService_Send(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	var svc core.EmailService = NewConsoleService(log.New(out, "", 0), conf)

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
		Subject: "hello",
		BodyStr: "see you soon",
	}
	require.NoError(t, svc.Send(context.Background(), msg))
	assert.Contains(t, out.String(), "Subject: ["+conf.AppName+"] hello")
	assert.Contains(t, out.String(), "see you soon")

	t.Run("cancelled", func(t *testing.T) {
		out.Reset()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, svc.Send(ctx, msg))
		assert.Empty(t, out.String())
	})
}

func TestConsoleServiceMock_Send(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	msg := &core.EmailMessage{To: []mail.Address{{Address: "ada@test.cd"}}, BodyStr: "hi"}

	svc.FailNext(1)
	assert.Error(t, svc.Send(context.Background(), msg))
	assert.Empty(t, svc.SentMessages())

	require.NoError(t, svc.Send(context.Background(), msg))
	assert.Len(t, svc.SentMessages(), 1)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
