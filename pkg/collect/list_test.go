package collect

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nestedRedirect = "https://a.com/r?u=https%3A%2F%2Fb.com%2Fr%3Fu%3Dhttp%253A%252F%252Fc.com"
	middleRedirect = "https://b.com/r?u=http%3A%2F%2Fc.com"
	middleDecoded  = "https://b.com/r?u=http://c.com"
)

func TestAppend(t *testing.T) {
	l := NewList()

	assert.True(t, l.Append("http://domain.com"))
	assert.False(t, l.Append("http://domain.com"), "exact duplicate")
	assert.False(t, l.Append("domain.com"))
	assert.False(t, l.Append(""))
	assert.True(t, l.Append("http://d😉o😉m😉a😉i😉n😉2😉.😉c😉o😉m"))
	assert.True(t, l.Append("http://DOMAIN.com"), "different raw value is kept")

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"http://DOMAIN.com", "http://domain.com", "http://domain2.com"}, l.Values())
}

func TestAppendURL(t *testing.T) {
	l := NewList()
	cache := NewCache()
	assert.True(t, l.AppendURL(cache.Get("http://domain.com")))
	assert.False(t, l.AppendURL(nil))
	assert.Len(t, l.URLs(), 1)
}

func TestExtend(t *testing.T) {
	a := NewList()
	a.Append("http://domain.com")
	b := NewList()
	b.Append("http://domain.com")
	b.Append("http://domain2.com")

	a.Extend(b)
	assert.Equal(t, []string{"http://domain.com", "http://domain2.com"}, a.Values())
}

func TestFlatten(t *testing.T) {
	l := NewList()
	require.True(t, l.Append("https://www.domain.com/redirect?url=http%3A//domain2.com"))

	assert.Equal(t, []string{
		"http://domain2.com",
		"https://www.domain.com/redirect?url=http%3A//domain2.com",
	}, l.Flatten(0))
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, NewList().Flatten(0))
}

func TestFlatten_KeepsEveryRootEncoding(t *testing.T) {
	l := NewList()
	l.Append("http://domain.com/%28test/123")
	l.Append("http://domain.com/(test/123")

	assert.Equal(t, []string{"http://domain.com/%28test/123", "http://domain.com/(test/123"}, l.Flatten(0))
}

func TestFlatten_DepthLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	l := New(nil, logrus.NewEntry(logger))
	require.True(t, l.Append(nestedRedirect))

	shallow := l.Flatten(1)
	assert.Contains(t, shallow, nestedRedirect)
	assert.Contains(t, shallow, middleRedirect)
	assert.NotContains(t, shallow, "http://c.com")
	assert.Contains(t, buf.String(), "Redirect depth limit reached")

	deep := l.Flatten(0)
	assert.Contains(t, deep, "http://c.com")
}

func TestFlatten_SharedKey(t *testing.T) {
	expected := []string{"http://c.com", nestedRedirect, middleRedirect, middleDecoded}

	t.Run("ExpandedOnce", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)

		l := New(nil, logrus.NewEntry(logger))
		require.True(t, l.Append(middleDecoded))
		require.True(t, l.Append(nestedRedirect))

		// middleRedirect shares its key with the root that was already expanded,
		// so reaching it at the depth limit does not try to expand it again
		assert.Equal(t, expected, l.Flatten(1))
		assert.NotContains(t, buf.String(), "Redirect depth limit reached")
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		l := NewList()
		require.True(t, l.Append(nestedRedirect))
		require.True(t, l.Append(middleDecoded))

		assert.Equal(t, expected, l.Flatten(1))
	})
}

func TestRemovePartialURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "PrefixWithPath",
			input:    []string{"http://domain.com/about us/index.php", "http://domain.com/about us", "http://domain.com"},
			expected: []string{"http://domain.com", "http://domain.com/about us/index.php"},
		},
		{
			name:     "BareHostIsKept",
			input:    []string{"http://domain.com", "http://domain.com/index.php"},
			expected: []string{"http://domain.com", "http://domain.com/index.php"},
		},
		{
			name:     "Unrelated",
			input:    []string{"http://domain.com/a", "http://domain2.com/a"},
			expected: []string{"http://domain.com/a", "http://domain2.com/a"},
		},
		{
			name:     "Empty",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RemovePartialURLs(tt.input))
		})
	}
}

func TestValidURLs(t *testing.T) {
	input := []string{
		"http://domain.com",
		"domain",
		"http://d😉o😉m😉a😉i😉n😉2😉.😉c😉o😉m",
		"email@domain3.com",
	}
	assert.Equal(t, []string{"http://domain.com", "http://domain2.com"}, ValidURLs(input))
}
