package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotBlank(t *testing.T) {
	require.True(t, NotBlank("hello"))
	require.False(t, NotBlank(""))
	require.False(t, NotBlank("   "))
}

func TestIsEmail(t *testing.T) {
	require.True(t, IsEmail("test@example.com"))
	require.False(t, IsEmail("not-an-email"))
	require.False(t, IsEmail(""))
}

func TestRgxPhoneNumber(t *testing.T) {
	require.True(t, Matches("+12345678901", RgxPhoneNumber))
	require.True(t, Matches("(123) 456-7890", RgxPhoneNumber))
	require.False(t, Matches("12", RgxPhoneNumber))
	require.False(t, Matches("phone", RgxPhoneNumber))
}

func TestRgxDomain(t *testing.T) {
	require.True(t, Matches("example.com", RgxDomain))
	require.True(t, Matches("app.example.co.uk", RgxDomain))
	require.True(t, Matches("my-startup.io", RgxDomain))

	require.False(t, Matches("https://example.com", RgxDomain))
	require.False(t, Matches("example.com/path", RgxDomain))
	require.False(t, Matches("no-tld", RgxDomain))
	require.False(t, Matches("", RgxDomain))
}

func TestBetween(t *testing.T) {
	require.True(t, Between(5, 1, 10))
	require.True(t, Between(1, 1, 10))
	require.True(t, Between(10, 1, 10))
	require.False(t, Between(0, 1, 10))
	require.False(t, Between(11, 1, 10))
}

func TestValidatorCheck(t *testing.T) {
	var v Validator

	require.False(t, v.HasErrors())

	v.Check(true, "never recorded")
	require.False(t, v.HasErrors())

	v.Check(false, "recorded")
	require.True(t, v.HasErrors())
	require.Equal(t, []string{"recorded"}, v.Errors)
}
