package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "User Auth", TitleCase("user auth"))
	assert.Equal(t, "Already Cased", TitleCase("Already Cased"))
	assert.Equal(t, "", TitleCase("  "))
}

func TestCaseConversions(t *testing.T) {
	cases := []struct {
		in     string
		snake  string
		pascal string
		kebab  string
	}{
		{"successful login", "successful_login", "SuccessfulLogin", "successful-login"},
		{"API-base_url", "api_base_url", "ApiBaseUrl", "api-base-url"},
		{"parseTaskID", "parse_task_id", "ParseTaskId", "parse-task-id"},
		{"v2.checkout", "v2_checkout", "V2Checkout", "v2-checkout"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.snake, SnakeCase(tc.in), "snake %q", tc.in)
		assert.Equal(t, tc.pascal, PascalCase(tc.in), "pascal %q", tc.in)
		assert.Equal(t, tc.kebab, KebabCase(tc.in), "kebab %q", tc.in)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "login_with_401", SanitizeIdentifier("login with 401"))
	// Leading digits are not valid identifier starts.
	assert.Equal(t, "_1_leading_digit", SanitizeIdentifier("31 leading digit"))
}
