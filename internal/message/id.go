package message

import (
	"strconv"
	"unicode/utf16"
)

// IDAttr is the attribute the stable id is written back to.
const IDAttr = "data-message-id"

const idContentPrefix = 100

// StableID derives a message id from site, role, scan position and the first
// 100 UTF-16 code units of content. The position is part of the input so that
// identical turns at different places do not collide.
func StableID(site Site, role Role, index int, content string) string {
	prefix := string(site) + "-" + string(role) + "-" + strconv.Itoa(index) + "-"

	units := utf16.Encode([]rune(prefix))
	body := utf16.Encode([]rune(content))
	if len(body) > idContentPrefix {
		body = body[:idContentPrefix]
	}
	units = append(units, body...)

	var hash int32
	for _, c := range units {
		hash = hash*31 + int32(c)
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return "msg_" + strconv.FormatInt(abs, 36)
}
