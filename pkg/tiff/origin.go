package tiff

import (
	"image"
	"strconv"
	"strings"
	"unicode"
)

// Origin extracts the Micro-Manager camera ROI from the metadata of fi. The
// summary metadata holds it as "ROI": [x,y,w,h]; the per image metadata and
// info as "ROI": "x-y-w-h". Missing or malformed values report false.
func Origin(fi *ExtendedFileInfo) (image.Rectangle, bool) {
	if r, ok := parseROI(fi.SummaryMetaData, '[', ']', ','); ok {
		return r, true
	}
	if r, ok := parseROI(fi.ExtendedMetaData, '"', '"', '-'); ok {
		return r, true
	}
	return parseROI(fi.Info, '"', '"', '-')
}

func parseROI(text string, start, end, sep byte) (image.Rectangle, bool) {
	const key = `"ROI"`
	i := strings.Index(text, key)
	if i < 0 {
		return image.Rectangle{}, false
	}
	rest := text[i+len(key):]
	j := 0
	for ; j < len(rest) && rest[j] != start; j++ {
		if rest[j] != ':' && !unicode.IsSpace(rune(rest[j])) {
			return image.Rectangle{}, false
		}
	}
	if j == len(rest) {
		return image.Rectangle{}, false
	}
	rest = rest[j+1:]
	k := strings.IndexByte(rest, end)
	if k < 0 {
		return image.Rectangle{}, false
	}
	fields := strings.Split(rest[:k], string(sep))
	if len(fields) != 4 {
		return image.Rectangle{}, false
	}
	var v [4]int
	for n, f := range fields {
		x, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || x < 0 {
			return image.Rectangle{}, false
		}
		v[n] = x
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), true
}
