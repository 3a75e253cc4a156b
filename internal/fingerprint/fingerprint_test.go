package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("lowercases input", func(t *testing.T) {
		assert.Equal(t, "connection refused", Normalize("Connection REFUSED"))
	})

	t.Run("replaces posix paths", func(t *testing.T) {
		got := Normalize("ENOENT: no such file /usr/local/app/config.json")
		assert.Equal(t, "enoent: no such file <path>", got)
	})

	t.Run("replaces windows paths", func(t *testing.T) {
		got := Normalize(`cannot open C:\Users\dev\project\main.go`)
		assert.Contains(t, got, PlaceholderPath)
		assert.NotContains(t, got, "users")
	})

	t.Run("replaces file locators", func(t *testing.T) {
		got := Normalize("panic at server.go:42:17")
		assert.Equal(t, "panic at <loc>", got)
	})

	t.Run("replaces path locators", func(t *testing.T) {
		got := Normalize("error in /usr/local/app/server.js:42")
		assert.Equal(t, "error in <loc>", got)
	})

	t.Run("replaces line references", func(t *testing.T) {
		got := Normalize("syntax error on line 128")
		assert.Equal(t, "syntax error on line <num>", got)
	})

	t.Run("replaces ip and port", func(t *testing.T) {
		got := Normalize("connect to 192.168.0.17:5432 failed")
		assert.Equal(t, "connect to <ip>:<port> failed", got)
	})

	t.Run("replaces uuids", func(t *testing.T) {
		got := Normalize("user 550e8400-e29b-41d4-a716-446655440000 not found")
		assert.Equal(t, "user <uuid> not found", got)
	})

	t.Run("replaces timestamps", func(t *testing.T) {
		got := Normalize("deadline exceeded at 2025-03-14T09:26:53Z")
		assert.Equal(t, "deadline exceeded at <timestamp>", got)
	})

	t.Run("replaces hex addresses", func(t *testing.T) {
		got := Normalize("invalid memory address 0xc000012345")
		assert.Contains(t, got, PlaceholderHex)
	})

	t.Run("replaces long ids", func(t *testing.T) {
		got := Normalize("request 8814562990 failed")
		assert.Equal(t, "request <num> failed", got)
	})

	t.Run("keeps short numbers", func(t *testing.T) {
		got := Normalize("expected 3 arguments, got 5")
		assert.Equal(t, "expected 3 arguments, got 5", got)
	})

	t.Run("replaces long quoted strings", func(t *testing.T) {
		long := strings.Repeat("x", 60)
		got := Normalize(`unexpected value "` + long + `"`)
		assert.Equal(t, `unexpected value "<str>"`, got)
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := Normalize("too   many\n\twhitespace   runs")
		assert.Equal(t, "too many whitespace runs", got)
	})

	t.Run("idempotent", func(t *testing.T) {
		messages := []string{
			"ENOENT: no such file /tmp/build-8814562/out.js at line 12",
			"connect to 10.0.0.1:8080 timed out at 2025-01-02T10:00:00Z",
			`panic at C:\dev\app\main.go:10: got "` + strings.Repeat("y", 55) + `"`,
		}
		for _, msg := range messages {
			once := Normalize(msg)
			assert.Equal(t, once, Normalize(once), "re-normalizing must be a no-op for %q", msg)
		}
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("stable across instance data", func(t *testing.T) {
		a := Fingerprint("ENOENT: no such file /home/alice/app/config.json on line 10", "runtime")
		b := Fingerprint("ENOENT: no such file /var/lib/app/config.json on line 99", "runtime")
		assert.Equal(t, a, b)
	})

	t.Run("category changes identity", func(t *testing.T) {
		a := Fingerprint("operation failed", "network")
		b := Fingerprint("operation failed", "database")
		assert.NotEqual(t, a, b)
	})

	t.Run("different messages differ", func(t *testing.T) {
		a := Fingerprint("connection refused", "network")
		b := Fingerprint("connection reset", "network")
		assert.NotEqual(t, a, b)
	})

	t.Run("hex encoded sha256", func(t *testing.T) {
		fp := Fingerprint("anything", "runtime")
		assert.Len(t, fp, 64)
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"SyntaxError: unexpected token '}'", CategorySyntax},
		{"pq: duplicate key value violates unique constraint", CategoryDatabase},
		{"dial tcp: connection refused", CategoryNetwork},
		{"401 unauthorized: token expired", CategoryAuth},
		{"missing config: API_BASE_URL not set", CategoryConfig},
		{"cannot find module 'lodash'", CategoryBuild},
		{"runtime error: index out of range [5] with length 3", CategoryRuntime},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.message, "fallback"), "message: %s", tc.message)
	}

	t.Run("unknown falls back", func(t *testing.T) {
		assert.Equal(t, "custom-default", Classify("something inscrutable happened", "custom-default"))
	})
}

func TestSuggestSeverity(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"potential SQL injection detected", SeverityCritical},
		{"data loss during replication", SeverityCritical},
		{"panic: runtime error", SeverityHigh},
		{"permission denied on /etc/shadow", SeverityHigh},
		{"request failed with timeout", SeverityMedium},
		{"deprecated option ignored", SeverityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SuggestSeverity(tc.message), "message: %s", tc.message)
	}
}

func TestDeriveTags(t *testing.T) {
	t.Run("includes category and vocabulary matches", func(t *testing.T) {
		tags := DeriveTags("postgres connection pool exhausted in backend api", "database")
		assert.Contains(t, tags, "database")
		assert.Contains(t, tags, "postgres")
		assert.Contains(t, tags, "backend")
		assert.Contains(t, tags, "api")
	})

	t.Run("matches whole words only", func(t *testing.T) {
		tags := DeriveTags("logout handler returned cargo manifest", "runtime")
		assert.NotContains(t, tags, "go")
	})

	t.Run("sorted and deduplicated", func(t *testing.T) {
		tags := DeriveTags("redis cache miss, redis reconnect", "network")
		for i := 1; i < len(tags); i++ {
			assert.Less(t, tags[i-1], tags[i])
		}
	})
}

func TestTagCategory(t *testing.T) {
	assert.Equal(t, "error-type", TagCategory("network", "network"))
	assert.Equal(t, "technology", TagCategory("postgres", "network"))
	assert.Equal(t, "technology", TagCategory("React", "network"))
	assert.Equal(t, "domain", TagCategory("cache", "network"))
	assert.Equal(t, "custom", TagCategory("billing-service", "network"))
}

func TestSeverityRank(t *testing.T) {
	assert.True(t, SeverityRank(SeverityLow) < SeverityRank(SeverityMedium))
	assert.True(t, SeverityRank(SeverityMedium) < SeverityRank(SeverityHigh))
	assert.True(t, SeverityRank(SeverityHigh) < SeverityRank(SeverityCritical))
	assert.Equal(t, 0, SeverityRank("bogus"))

	assert.True(t, ValidSeverity(SeverityCritical))
	assert.False(t, ValidSeverity("urgent"))
}
