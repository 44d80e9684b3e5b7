package core_test

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/testutil"
)

func TestEmailMessage_Render(t *testing.T) {
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(logger)
	require.Empty(t, logger.Records("ERROR"))

	t.Run("invite", func(t *testing.T) {
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
			Subject:      "invite",
			TemplateName: "invite",
			TemplateData: struct{ FirstName, Token string }{FirstName: "Ada", Token: "tok3n"},
		}
		require.NoError(t, msg.Render("Capitalize", "http://front.test"))

		assert.Contains(t, msg.TextContent, "Hi Ada")
		assert.Contains(t, msg.TextContent, "http://front.test/auth/register/?token=tok3n")
		assert.Contains(t, msg.HTMLContent, "tok3n")
		assert.True(t, msg.HasContent())
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &core.EmailMessage{TemplateName: "nope"}
		assert.Error(t, msg.Render("Capitalize", "http://front.test"))
	})

	t.Run("body string", func(t *testing.T) {
		msg := &core.EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render("Capitalize", "http://front.test"))
		assert.Equal(t, "hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})
}
