package bulletin

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// cycleDatePattern matches the date stamp line preceding each report in a
// NOAA cycle file, e.g. "2015/09/09 19:55".
var cycleDatePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}$`)

// SplitCycle splits a cycle file into bulletins. Reports are separated by
// blank lines; a date stamp line opening a block becomes the bulletin
// timestamp. Kind and station are detected from each block's text.
func SplitCycle(r io.Reader) ([]Bulletin, error) {
	var (
		out   []Bulletin
		lines []string
		stamp string
	)

	flush := func() {
		if len(lines) == 0 {
			stamp = ""
			return
		}
		text := strings.Join(lines, "\n")
		b := Bulletin{
			Kind:      DetectKind(text),
			Source:    "cycle",
			Timestamp: stamp,
			Text:      text,
		}
		b.Station = b.EffectiveStation()
		out = append(out, b)
		lines, stamp = nil, ""
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case len(lines) == 0 && cycleDatePattern.MatchString(line):
			stamp = line
		default:
			lines = append(lines, line)
		}
	}
	flush()

	return out, sc.Err()
}
