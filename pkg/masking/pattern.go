package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// patternDef is the uncompiled source for a built-in pattern.
type patternDef struct {
	pattern     string
	replacement string
	description string
}

// builtinPatterns are the secret/PII shapes masked out of text before it
// leaves the process in an LLM prompt.
func builtinPatterns() map[string]patternDef {
	return map[string]patternDef{
		"api_key": {
			pattern:     `(?i)(?:api[_-]?key|apikey|key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{20,})["\']?`,
			replacement: `"api_key": "[MASKED_API_KEY]"`,
			description: "API keys",
		},
		"password": {
			pattern:     `(?i)(?:password|pwd|pass)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
			replacement: `"password": "[MASKED_PASSWORD]"`,
			description: "Passwords",
		},
		"certificate": {
			pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			replacement: `[MASKED_CERTIFICATE]`,
			description: "SSL/TLS certificates and PEM-encoded key blocks",
		},
		"token": {
			pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			replacement: `"token": "[MASKED_TOKEN]"`,
			description: "Access tokens",
		},
		"email": {
			pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			replacement: `[MASKED_EMAIL]`,
			description: "Email addresses",
		},
		"ssh_key": {
			pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			replacement: `[MASKED_SSH_KEY]`,
			description: "SSH public keys",
		},
		"private_key": {
			pattern:     `(?i)(?:private[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
			description: "Private keys",
		},
		"secret_key": {
			pattern:     `(?i)(?:secret[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
			description: "Secret keys",
		},
		"aws_access_key": {
			pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["\']?\s*[:=]\s*["\']?(AKIA[A-Z0-9]{16})["\']?`,
			replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			description: "AWS access keys",
		},
		"aws_secret_key": {
			pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9/+=]{40})["\']?`,
			replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
			description: "AWS secret keys",
		},
		"github_token": {
			pattern:     `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
			replacement: `[MASKED_GITHUB_TOKEN]`,
			description: "GitHub tokens",
		},
		"slack_token": {
			pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			replacement: `[MASKED_SLACK_TOKEN]`,
			description: "Slack tokens",
		},
		"base64_secret": {
			pattern:     `\b([A-Za-z0-9+/]{20,}={0,2})\b`,
			replacement: `[MASKED_BASE64_VALUE]`,
			description: "Base64 values (20+ chars)",
		},
	}
}

// compileBuiltinPatterns compiles every built-in pattern, logging and
// skipping any that fail to compile rather than aborting startup.
func compileBuiltinPatterns() []*CompiledPattern {
	var out []*CompiledPattern
	for name, def := range builtinPatterns() {
		re, err := regexp.Compile(def.pattern)
		if err != nil {
			slog.Error("masking: built-in pattern failed to compile, skipping", "pattern", name, "error", err)
			continue
		}
		out = append(out, &CompiledPattern{Name: name, Regex: re, Replacement: def.replacement, Description: def.description})
	}
	return out
}
