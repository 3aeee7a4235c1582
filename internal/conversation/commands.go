package conversation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// The model is told to emit bare "ACTION file.ext" commands, but it sometimes
// wraps the filename in square brackets anyway. Both shapes are accepted; the
// extension allow-list keeps prose like "notes.txt" out.
var (
	bareCommandRe    = regexp.MustCompile(`(?i)\b(REPAIR|DARKEN|BRIGHTEN|ANALYZE)\s+([^\s\[\]]+\.(?:jpg|jpeg|gif|png|bmp))\b`)
	bracketCommandRe = regexp.MustCompile(`(?i)\b(REPAIR|DARKEN|BRIGHTEN|ANALYZE)\s+\[([^\[\]]+\.(?:jpg|jpeg|gif|png|bmp))\]`)
)

type commandMatch struct {
	offset  int
	command schemas.Command
}

// ExtractCommands pulls recognized commands out of free-form model output.
// Duplicates are dropped keeping the first occurrence, matches are returned
// in text order, and commands whose action already exhausted its retry budget
// are silently dropped without being recorded.
func ExtractCommands(text string, tracker *Tracker) []schemas.Command {
	var matches []commandMatch
	for _, re := range []*regexp.Regexp{bareCommandRe, bracketCommandRe} {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			matches = append(matches, commandMatch{
				offset: idx[0],
				command: schemas.Command{
					Action:   schemas.Action(strings.ToUpper(text[idx[2]:idx[3]])),
					Filename: text[idx[4]:idx[5]],
				},
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].offset < matches[j].offset })

	seen := make(map[string]struct{}, len(matches))
	var out []schemas.Command
	for _, m := range matches {
		key := Normalize(m.command.String())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if tracker != nil && !tracker.ShouldExecute(key) {
			continue
		}
		out = append(out, m.command)
	}
	return out
}

// Image references arrive either as bare filenames resolved under the remote
// media convention or as full URLs embedded in the message text.
var (
	bareImageRe = regexp.MustCompile(`(?i)\b([A-Za-z0-9_]+\.(?:jpg|jpeg|gif|png|bmp|webp))\b`)
	imageURLRe  = regexp.MustCompile(`(?i)https?://[^\s<>"]+?\.(?:jpg|jpeg|gif|png|bmp|webp)\b`)
)

// ExtractImageURLs finds every image reference in a remote message and
// resolves bare filenames via the resolver. The result is deduplicated
// preserving first-occurrence order.
func ExtractImageURLs(message string, resolve func(filename string) string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(url string) {
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}

	for _, url := range imageURLRe.FindAllString(message, -1) {
		add(url)
	}
	for _, name := range bareImageRe.FindAllString(message, -1) {
		add(resolve(name))
	}
	return out
}
