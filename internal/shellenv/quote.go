package shellenv

import "strings"

// Quote wraps s in single quotes so a POSIX shell evaluates it to exactly
// s, for any byte sequence. Embedded single quotes use the close/reopen
// idiom: ' becomes '"'"'.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
