package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	msg := s.T("hi", MsgDependencyMissing, map[string]interface{}{"Language": "Hindi"})
	assert.Contains(t, msg, "Hindi")
	assert.Contains(t, msg, "ट्रांसक्रिप्ट")

	assert.Equal(t, "The requested item was not found.", s.T("en", MsgNotFound, nil))
	assert.Equal(t, "The requested item was not found.", s.T("fr", MsgNotFound, nil), "unknown languages fall back to default")
	assert.Equal(t, "missing.key", s.T("en", "missing.key", nil))
	assert.Equal(t, s.T("en", MsgInternal, nil), s.TWithDefaultLang(MsgInternal, nil))
}

func TestMatch(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"none", nil, "en"},
		{"query", []string{"hi"}, "hi"},
		{"accept header", []string{"", "hi-IN,hi;q=0.9,en;q=0.8"}, "hi"},
		{"unsupported", []string{"de-DE"}, "en"},
		{"garbage", []string{";;;"}, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Match(tt.prefs...))
		})
	}
}

func TestNewI18nSupportRejectsBadDefault(t *testing.T) {
	_, err := NewI18nSupport("not a tag!")
	assert.Error(t, err)
}
