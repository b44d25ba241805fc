package discord

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// cutArg splits the first argument off s. Arguments are separated by
// whitespace; a double-quoted argument may contain spaces. rest keeps its
// original spacing minus the leading separator.
func cutArg(s string) (arg, rest string, err error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", "", nil
	}

	if s[0] == '"' {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return "", "", errUnterminatedQuote
		}
		return s[1 : end+1], trimSeparator(s[end+2:]), nil
	}

	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, "", nil
	}
	return s[:i], trimSeparator(s[i:]), nil
}

// trimSeparator drops the single whitespace run that ends an argument.
func trimSeparator(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

// splitArgs splits s into at most n arguments; n < 0 means no limit.
func splitArgs(s string, n int) ([]string, error) {
	var args []string
	for (n < 0 || len(args) < n) && strings.TrimSpace(s) != "" {
		arg, rest, err := cutArg(s)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		s = rest
	}
	return args, nil
}

// parseUserRef accepts a mention (<@123> or <@!123>) or a bare numeric ID.
func parseUserRef(s string) (string, bool) {
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(s[2:len(s)-1], "!")
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}
